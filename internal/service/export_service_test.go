package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExportInvoice(t *testing.T, invoices *fakeInvoiceRepo, docs DocumentService, invoiceNo string, issueDate time.Time, withPDF bool) {
	t.Helper()
	inv := &model.Invoice{
		InvoiceNo:       invoiceNo,
		Kind:            model.KindInvoice,
		Company:         model.CompanyWT,
		ClientID:        uuid.New(),
		Client:          &model.Client{ClientName: "Deccan Traders"},
		IssueDate:       issueDate,
		Currency:        "INR",
		ExchangeRate:    decimal.NewFromInt(1),
		RateSource:      model.RateSourceStatic,
		SubtotalINR:     decimal.NewFromInt(1000),
		TotalINR:        decimal.NewFromInt(1180),
		TaxINR:          decimal.NewFromInt(180),
		SubtotalDisplay: decimal.NewFromInt(1000),
		TaxDisplay:      decimal.NewFromInt(180),
		TotalDisplay:    decimal.NewFromInt(1180),
		TaxType:         model.TaxTypeGST,
		PaymentStatus:   model.PaymentPending,
	}
	if withPDF {
		docID, err := docs.Store(context.Background(), invoiceNo, "application/pdf", []byte("pdf for "+invoiceNo))
		require.NoError(t, err)
		inv.PDFDocumentID = docID
	}
	require.NoError(t, invoices.Create(context.Background(), inv))
}

func readZip(t *testing.T, content []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = data
	}
	return out
}

func TestExportMonthBundlesPDFsAndManifest(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	invoices := newFakeInvoiceRepo()
	docs := NewDocumentService(newFakeDocumentRepo(), log)
	audits := &fakeAuditRepo{}
	broadcaster := &recordingBroadcaster{}
	svc := NewExportService(invoices, docs, audits, broadcaster, log)

	jan := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	seedExportInvoice(t, invoices, docs, "WT2501INV001", jan, true)
	seedExportInvoice(t, invoices, docs, "WT2501INV002", jan.AddDate(0, 0, 5), true)
	// Outside the period: must not appear.
	seedExportInvoice(t, invoices, docs, "WT2502INV001", jan.AddDate(0, 1, 0), true)

	result, err := svc.ExportMonth(context.Background(), 2025, time.January, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "export_2025_01.zip", result.FileName)
	assert.Equal(t, 2, result.Included)
	assert.Empty(t, result.Skipped)

	files := readZip(t, result.Content)
	assert.Equal(t, []byte("pdf for WT2501INV001"), files["WT2501INV001.pdf"])
	assert.Equal(t, []byte("pdf for WT2501INV002"), files["WT2501INV002.pdf"])
	_, ok := files["WT2502INV001.pdf"]
	assert.False(t, ok)

	manifest, err := csv.NewReader(bytes.NewReader(files["manifest.csv"])).ReadAll()
	require.NoError(t, err)
	require.Len(t, manifest, 3, "header plus one row per document in the period")
	assert.Equal(t, "invoice_no", manifest[0][0])

	assert.Contains(t, audits.actions(), model.ActionMonthlyExport)
	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, "export_completed", broadcaster.events[0])
}

func TestExportMonthSkipsUnreadablePDFs(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	invoices := newFakeInvoiceRepo()
	docRepo := newFakeDocumentRepo()
	docs := NewDocumentService(docRepo, log)
	svc := NewExportService(invoices, docs, &fakeAuditRepo{}, nil, log)

	jan := time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC)
	seedExportInvoice(t, invoices, docs, "WT2501INV001", jan, true)
	seedExportInvoice(t, invoices, docs, "WT2501INV002", jan, true)
	seedExportInvoice(t, invoices, docs, "WT2501INV003", jan, false) // never had a PDF

	// Corrupt the second document by dropping its chunks.
	for docID, meta := range docRepo.metas {
		if meta.InvoiceNo == "WT2501INV002" {
			docRepo.chunks[docID] = nil
		}
	}

	result, err := svc.ExportMonth(context.Background(), 2025, time.January, "", nil)
	require.NoError(t, err, "one bad document must not fail the export")

	assert.Equal(t, 1, result.Included)
	assert.ElementsMatch(t, []string{"WT2501INV002", "WT2501INV003"}, result.Skipped)

	files := readZip(t, result.Content)
	_, ok := files["WT2501INV001.pdf"]
	assert.True(t, ok)
	_, ok = files["WT2501INV002.pdf"]
	assert.False(t, ok)

	// The manifest still lists every document, flagging the PDF state.
	manifest, err := csv.NewReader(bytes.NewReader(files["manifest.csv"])).ReadAll()
	require.NoError(t, err)
	states := map[string]string{}
	for _, row := range manifest[1:] {
		states[row[0]] = row[len(row)-1]
	}
	assert.Equal(t, "included", states["WT2501INV001"])
	assert.Equal(t, "unreadable", states["WT2501INV002"])
	assert.Equal(t, "missing", states["WT2501INV003"])
}

func TestExportMonthEmptyPeriod(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc := NewExportService(newFakeInvoiceRepo(), NewDocumentService(newFakeDocumentRepo(), log), &fakeAuditRepo{}, nil, log)

	result, err := svc.ExportMonth(context.Background(), 2025, time.June, "", nil)
	require.NoError(t, err)

	assert.Zero(t, result.Included)
	files := readZip(t, result.Content)
	require.Len(t, files, 1)
	_, ok := files["manifest.csv"]
	assert.True(t, ok, "an empty period still produces a manifest")
}
