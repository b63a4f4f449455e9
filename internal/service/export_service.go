package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExportResult is the produced archive plus a recap of what it contains.
type ExportResult struct {
	FileName string
	Content  []byte
	Included int
	Skipped  []string // invoice numbers whose PDFs could not be reconstructed
}

// ExportService produces the monthly audit archive: every PDF issued in the
// period plus a CSV manifest of the stored amounts.
type ExportService interface {
	ExportMonth(ctx context.Context, year int, month time.Month, kind string, actorID *uuid.UUID) (*ExportResult, error)
}

type exportService struct {
	invoices    repository.InvoiceRepository
	documents   DocumentService
	audits      repository.AuditRepository
	broadcaster Broadcaster
	log         *logrus.Logger
}

func NewExportService(invoices repository.InvoiceRepository, documents DocumentService, audits repository.AuditRepository, broadcaster Broadcaster, log *logrus.Logger) ExportService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &exportService{invoices: invoices, documents: documents, audits: audits, broadcaster: broadcaster, log: log}
}

// ExportMonth collects the period's documents into a zip. A PDF that cannot
// be reconstructed is skipped and listed in the manifest rather than failing
// the whole export.
func (s *exportService) ExportMonth(ctx context.Context, year int, month time.Month, kind string, actorID *uuid.UUID) (*ExportResult, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	invoices, err := s.invoices.ListByPeriod(ctx, from, to, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for %04d-%02d: %w", year, int(month), err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifest := [][]string{{
		"invoice_no", "kind", "company", "client", "issue_date", "currency",
		"subtotal", "tax", "total", "total_inr", "tax_type", "payment_status", "pdf",
	}}

	result := &ExportResult{
		FileName: fmt.Sprintf("export_%04d_%02d.zip", year, int(month)),
	}

	for i := range invoices {
		inv := &invoices[i]
		pdfState := "included"

		if inv.PDFDocumentID == "" {
			pdfState = "missing"
			result.Skipped = append(result.Skipped, inv.InvoiceNo)
		} else if doc, recErr := s.documents.Reconstruct(ctx, inv.PDFDocumentID); recErr != nil {
			pdfState = "unreadable"
			result.Skipped = append(result.Skipped, inv.InvoiceNo)
			s.log.WithError(recErr).WithField("invoice_no", inv.InvoiceNo).Warn("skipping document in export")
		} else {
			w, zerr := zw.Create(fmt.Sprintf("%s.pdf", inv.InvoiceNo))
			if zerr != nil {
				return nil, fmt.Errorf("failed to write archive entry for %s: %w", inv.InvoiceNo, zerr)
			}
			if _, zerr := w.Write(doc.Content); zerr != nil {
				return nil, fmt.Errorf("failed to write archive entry for %s: %w", inv.InvoiceNo, zerr)
			}
			result.Included++
		}

		clientName := ""
		if inv.Client != nil {
			clientName = inv.Client.ClientName
		}
		manifest = append(manifest, []string{
			inv.InvoiceNo,
			inv.Kind,
			inv.Company,
			clientName,
			inv.IssueDate.Format("2006-01-02"),
			inv.Currency,
			inv.SubtotalDisplay.StringFixed(2),
			inv.TaxDisplay.StringFixed(2),
			inv.TotalDisplay.StringFixed(2),
			inv.TotalINR.StringFixed(2),
			inv.TaxType,
			inv.PaymentStatus,
			pdfState,
		})
	}

	mw, err := zw.Create("manifest.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	cw := csv.NewWriter(mw)
	if err := cw.WriteAll(manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	result.Content = buf.Bytes()

	details, _ := json.Marshal(map[string]interface{}{
		"period":   fmt.Sprintf("%04d-%02d", year, int(month)),
		"kind":     kind,
		"included": result.Included,
		"skipped":  result.Skipped,
	})
	if err := s.audits.Log(ctx, &model.AuditLog{
		UserID:   actorID,
		Action:   model.ActionMonthlyExport,
		EntityID: fmt.Sprintf("%04d-%02d", year, int(month)),
		Details:  string(details),
	}); err != nil {
		s.log.WithError(err).Warn("failed to write audit log")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastDocumentEvent("export_completed", map[string]interface{}{
			"period":   fmt.Sprintf("%04d-%02d", year, int(month)),
			"included": result.Included,
			"skipped":  len(result.Skipped),
		})
	}

	s.log.WithFields(logrus.Fields{
		"period":   fmt.Sprintf("%04d-%02d", year, int(month)),
		"included": result.Included,
		"skipped":  len(result.Skipped),
	}).Info("monthly export produced")

	return result, nil
}
