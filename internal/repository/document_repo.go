package repository

import (
	"context"
	"errors"

	"invoicing-backend/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository persists chunked documents. Chunks come back in
// arbitrary order; callers sort by index.
type DocumentRepository interface {
	SaveDocument(ctx context.Context, meta *model.PDFDocument, chunks []model.PDFChunk) error
	FindMeta(ctx context.Context, documentID string) (*model.PDFDocument, error)
	FindChunks(ctx context.Context, documentID string) ([]model.PDFChunk, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ListMetaByInvoice(ctx context.Context, invoiceNo string) ([]model.PDFDocument, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// SaveDocument replaces any existing document under the same ID atomically:
// prior chunks and metadata are removed in the same transaction, so a re-store
// can never leave a mixed chunk set behind.
func (r *documentRepository) SaveDocument(ctx context.Context, meta *model.PDFDocument, chunks []model.PDFChunk) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.PDFChunk{}, "document_id = ?", meta.DocumentID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.PDFDocument{}, "document_id = ?", meta.DocumentID).Error; err != nil {
			return err
		}
		if err := tx.Create(meta).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		// Batched so multi-megabyte documents don't build one giant statement.
		return tx.CreateInBatches(chunks, 20).Error
	})
}

func (r *documentRepository) FindMeta(ctx context.Context, documentID string) (*model.PDFDocument, error) {
	var meta model.PDFDocument
	err := GetDB(ctx, r.db).First(&meta, "document_id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *documentRepository) FindChunks(ctx context.Context, documentID string) ([]model.PDFChunk, error) {
	var chunks []model.PDFChunk
	if err := GetDB(ctx, r.db).Find(&chunks, "document_id = ?", documentID).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *documentRepository) DeleteDocument(ctx context.Context, documentID string) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.PDFChunk{}, "document_id = ?", documentID).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PDFDocument{}, "document_id = ?", documentID).Error
	})
}

func (r *documentRepository) ListMetaByInvoice(ctx context.Context, invoiceNo string) ([]model.PDFDocument, error) {
	var metas []model.PDFDocument
	if err := GetDB(ctx, r.db).Order("created_at desc").Find(&metas, "invoice_no = ?", invoiceNo).Error; err != nil {
		return nil, err
	}
	return metas, nil
}
