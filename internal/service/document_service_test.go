package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"invoicing-backend/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocumentRepo keeps chunked documents in memory. FindChunks returns
// chunks in insertion order, which for stored documents is index order —
// individual tests shuffle or drop chunks to exercise reconstruction.
type fakeDocumentRepo struct {
	mu     sync.Mutex
	metas  map[string]model.PDFDocument
	chunks map[string][]model.PDFChunk
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		metas:  map[string]model.PDFDocument{},
		chunks: map[string][]model.PDFChunk{},
	}
}

func (f *fakeDocumentRepo) SaveDocument(ctx context.Context, meta *model.PDFDocument, chunks []model.PDFChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metas[meta.DocumentID] = *meta
	f.chunks[meta.DocumentID] = append([]model.PDFChunk(nil), chunks...)
	return nil
}

func (f *fakeDocumentRepo) FindMeta(ctx context.Context, documentID string) (*model.PDFDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if meta, ok := f.metas[documentID]; ok {
		return &meta, nil
	}
	return nil, nil
}

func (f *fakeDocumentRepo) FindChunks(ctx context.Context, documentID string) ([]model.PDFChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PDFChunk(nil), f.chunks[documentID]...), nil
}

func (f *fakeDocumentRepo) DeleteDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.metas, documentID)
	delete(f.chunks, documentID)
	return nil
}

func (f *fakeDocumentRepo) ListMetaByInvoice(ctx context.Context, invoiceNo string) ([]model.PDFDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PDFDocument
	for _, meta := range f.metas {
		if meta.InvoiceNo == invoiceNo {
			out = append(out, meta)
		}
	}
	return out, nil
}

func newTestDocuments(repo *fakeDocumentRepo) DocumentService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewDocumentService(repo, log)
}

func TestStoreAndReconstructRoundTrip(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	tests := []struct {
		name string
		size int
	}{
		{"empty payload", 0},
		{"single byte", 1},
		{"small payload", 4 * 1024},
		{"chunk boundary minus one", chunkSize/4*3 - 1}, // stays single-chunk after base64 expansion
		{"multi chunk", 2 * chunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := make([]byte, tt.size)
			_, err := rand.Read(content)
			require.NoError(t, err)

			docID, err := svc.Store(ctx, "WT2501INV001", "application/pdf", content)
			require.NoError(t, err)
			require.NotEmpty(t, docID)

			doc, err := svc.Reconstruct(ctx, docID)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(content, doc.Content), "payload must round-trip byte-exactly")
			assert.Equal(t, "WT2501INV001", doc.InvoiceNo)
			assert.Equal(t, "application/pdf", doc.ContentType)
		})
	}
}

func TestStoreChunkLayout(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	// Decoded size chosen so the base64 form spans three chunks.
	content := make([]byte, chunkSize*2)
	_, err := rand.Read(content)
	require.NoError(t, err)

	docID, err := svc.Store(ctx, "WT2501INV002", "", content)
	require.NoError(t, err)

	chunks := repo.chunks[docID]
	encodedLen := base64.StdEncoding.EncodedLen(len(content))
	wantChunks := (encodedLen + chunkSize - 1) / chunkSize
	require.Len(t, chunks, wantChunks)

	total := 0
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, wantChunks, chunk.TotalChunks)
		assert.Equal(t, fmt.Sprintf("%s_chunk_%d", docID, i), chunk.ID)
		assert.LessOrEqual(t, len(chunk.Data), chunkSize)
		if i < len(chunks)-1 {
			assert.Equal(t, chunkSize, len(chunk.Data), "only the last chunk may be short")
		}
		total += len(chunk.Data)
	}
	assert.Equal(t, encodedLen, total)

	meta := repo.metas[docID]
	assert.Equal(t, wantChunks, meta.TotalChunks)
	assert.EqualValues(t, len(content), meta.SizeBytes)
	assert.Equal(t, "application/pdf", meta.ContentType, "empty content type defaults to pdf")
}

func TestReconstructOutOfOrderChunks(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	content := make([]byte, 3*chunkSize)
	_, err := rand.Read(content)
	require.NoError(t, err)

	docID, err := svc.Store(ctx, "WT2501INV003", "application/pdf", content)
	require.NoError(t, err)

	// Simulate arbitrary storage order.
	chunks := repo.chunks[docID]
	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}

	doc, err := svc.Reconstruct(ctx, docID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, doc.Content))
}

func TestReconstructMissingDocument(t *testing.T) {
	svc := newTestDocuments(newFakeDocumentRepo())

	_, err := svc.Reconstruct(context.Background(), "doc_does_not_exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.NotErrorIs(t, err, ErrIncompleteDocument)
}

func TestReconstructMissingMiddleChunk(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	content := make([]byte, 4*chunkSize)
	_, err := rand.Read(content)
	require.NoError(t, err)

	docID, err := svc.Store(ctx, "WT2501INV004", "application/pdf", content)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(repo.chunks[docID]), 4)

	// Drop chunk index 2: indices [0,1,3,...] must be reported incomplete,
	// never silently concatenated.
	chunks := repo.chunks[docID]
	repo.chunks[docID] = append(chunks[:2], chunks[3:]...)

	_, err = svc.Reconstruct(ctx, docID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteDocument)
	assert.NotErrorIs(t, err, ErrDocumentNotFound)
}

func TestReconstructMissingTailChunk(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	content := make([]byte, 2*chunkSize)
	_, err := rand.Read(content)
	require.NoError(t, err)

	docID, err := svc.Store(ctx, "WT2501INV005", "application/pdf", content)
	require.NoError(t, err)

	chunks := repo.chunks[docID]
	repo.chunks[docID] = chunks[:len(chunks)-1]

	_, err = svc.Reconstruct(ctx, docID)
	assert.ErrorIs(t, err, ErrIncompleteDocument)
}

func TestDeleteDocument(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	docID, err := svc.Store(ctx, "WT2501INV006", "application/pdf", []byte("payload"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, docID))

	_, err = svc.Reconstruct(ctx, docID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestListByInvoice(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newTestDocuments(repo)
	ctx := context.Background()

	_, err := svc.Store(ctx, "WT2501INV007", "application/pdf", []byte("a"))
	require.NoError(t, err)
	_, err = svc.Store(ctx, "WT2501INV007", "application/pdf", []byte("b"))
	require.NoError(t, err)
	_, err = svc.Store(ctx, "WT2501INV008", "application/pdf", []byte("c"))
	require.NoError(t, err)

	metas, err := svc.ListByInvoice(ctx, "WT2501INV007")
	require.NoError(t, err)
	assert.Len(t, metas, 2)
}
