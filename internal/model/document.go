package model

import "time"

// PDFDocument is the metadata row of a chunked binary document. The document
// is complete only when all TotalChunks chunk rows exist.
type PDFDocument struct {
	DocumentID  string    `gorm:"type:varchar(80);primaryKey" json:"document_id"`
	InvoiceNo   string    `gorm:"type:varchar(30);index" json:"invoice_no"`
	ContentType string    `gorm:"type:varchar(50);not null;default:'application/pdf'" json:"content_type"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"` // decoded payload size
	TotalChunks int       `gorm:"not null" json:"total_chunks"`
	CreatedAt   time.Time `json:"created_at"`
}

// PDFChunk is one size-bounded fragment of a document's base64 payload.
// Reconstruction orders strictly by ChunkIndex; storage order means nothing.
type PDFChunk struct {
	ID          string    `gorm:"type:varchar(100);primaryKey" json:"id"` // "<documentID>_chunk_<index>"
	DocumentID  string    `gorm:"type:varchar(80);not null;index" json:"document_id"`
	ChunkIndex  int       `gorm:"not null" json:"chunk_index"`
	TotalChunks int       `gorm:"not null" json:"total_chunks"`
	Data        string    `gorm:"type:text;not null" json:"data"` // base64 fragment
	CreatedAt   time.Time `json:"created_at"`
}
