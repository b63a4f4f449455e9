package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDocumentNotFound means no chunks exist at all for the document ID.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrIncompleteDocument means some chunks exist but the sequence has a
	// gap, so the payload cannot be reconstructed.
	ErrIncompleteDocument = errors.New("document is incomplete")
)

// chunkSize is the maximum number of base64 characters per stored chunk.
// Existing rows were written at this size, so it is part of the storage
// contract.
const chunkSize = 800 * 1024

// StoredDocument is a reconstructed payload plus its metadata.
type StoredDocument struct {
	DocumentID  string
	InvoiceNo   string
	ContentType string
	Content     []byte
}

// DocumentService persists binary payloads as ordered base64 chunk rows and
// reconstructs them byte-exactly.
type DocumentService interface {
	Store(ctx context.Context, invoiceNo, contentType string, content []byte) (string, error)
	Reconstruct(ctx context.Context, documentID string) (*StoredDocument, error)
	Delete(ctx context.Context, documentID string) error
	ListByInvoice(ctx context.Context, invoiceNo string) ([]model.PDFDocument, error)
}

type documentService struct {
	documents repository.DocumentRepository
	log       *logrus.Logger
}

func NewDocumentService(documents repository.DocumentRepository, log *logrus.Logger) DocumentService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &documentService{documents: documents, log: log}
}

// Store encodes the payload, splits it into fixed-size chunks and writes the
// chunk rows together with a metadata row. Re-storing under the same invoice
// produces a fresh document ID; old rows stay until deleted.
func (s *documentService) Store(ctx context.Context, invoiceNo, contentType string, content []byte) (string, error) {
	if contentType == "" {
		contentType = "application/pdf"
	}

	documentID := fmt.Sprintf("doc_%s", uuid.New().String())
	encoded := base64.StdEncoding.EncodeToString(content)

	totalChunks := (len(encoded) + chunkSize - 1) / chunkSize
	if totalChunks == 0 {
		totalChunks = 1
	}

	now := time.Now()
	chunks := make([]model.PDFChunk, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		chunks = append(chunks, model.PDFChunk{
			ID:          fmt.Sprintf("%s_chunk_%d", documentID, i),
			DocumentID:  documentID,
			ChunkIndex:  i,
			TotalChunks: totalChunks,
			Data:        encoded[start:end],
			CreatedAt:   now,
		})
	}

	meta := &model.PDFDocument{
		DocumentID:  documentID,
		InvoiceNo:   invoiceNo,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		TotalChunks: totalChunks,
		CreatedAt:   now,
	}

	if err := s.documents.SaveDocument(ctx, meta, chunks); err != nil {
		return "", fmt.Errorf("failed to store document for %s: %w", invoiceNo, err)
	}

	s.log.WithFields(logrus.Fields{
		"document_id": documentID,
		"invoice_no":  invoiceNo,
		"size_bytes":  len(content),
		"chunks":      totalChunks,
	}).Info("document stored")

	return documentID, nil
}

// Reconstruct loads every chunk for the document, orders them by index and
// decodes the concatenation. A contiguous run 0..n-1 is required; anything
// less is reported as incomplete rather than silently truncated.
func (s *documentService) Reconstruct(ctx context.Context, documentID string) (*StoredDocument, error) {
	chunks, err := s.documents.FindChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })

	expected := chunks[0].TotalChunks
	if len(chunks) != expected {
		return nil, fmt.Errorf("%w: %s has %d of %d chunks", ErrIncompleteDocument, documentID, len(chunks), expected)
	}
	var encoded []byte
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			return nil, fmt.Errorf("%w: %s is missing chunk %d", ErrIncompleteDocument, documentID, i)
		}
		encoded = append(encoded, chunk.Data...)
	}

	content, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", documentID, err)
	}

	doc := &StoredDocument{DocumentID: documentID, ContentType: "application/pdf", Content: content}
	if meta, metaErr := s.documents.FindMeta(ctx, documentID); metaErr == nil && meta != nil {
		doc.InvoiceNo = meta.InvoiceNo
		if meta.ContentType != "" {
			doc.ContentType = meta.ContentType
		}
	}
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, documentID string) error {
	if err := s.documents.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

func (s *documentService) ListByInvoice(ctx context.Context, invoiceNo string) ([]model.PDFDocument, error) {
	return s.documents.ListMetaByInvoice(ctx, invoiceNo)
}
