package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"invoicing-backend/internal/currency"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/rates"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrClientNotFound  = errors.New("client not found")
)

// PDFRenderer turns a persisted invoice into a printable document.
type PDFRenderer interface {
	Render(invoice *model.Invoice) ([]byte, error)
}

// Broadcaster pushes document lifecycle events to connected dashboard
// clients. Implementations must not block the caller.
type Broadcaster interface {
	BroadcastDocumentEvent(event string, payload interface{})
}

type LineItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Amount      string `json:"amount" binding:"required"`
}

type CreateInvoiceRequest struct {
	Kind      string            `json:"kind" binding:"required,oneof=INVOICE PROFORMA"`
	Company   string            `json:"company" binding:"required"`
	ClientID  uuid.UUID         `json:"client_id" binding:"required"`
	Title     string            `json:"title"`
	IssueDate string            `json:"issue_date" binding:"required"` // YYYY-MM-DD
	Currency  string            `json:"currency"`
	Note      string            `json:"note"`
	LineItems []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=Pending Partial Paid"`
}

type LineItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Position    int       `json:"position"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
}

// InvoiceResponse is the API shape of a document. Amounts are rendered to
// two decimal places; stored precision is never exposed raw.
type InvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNo     string             `json:"invoice_no"`
	Kind          string             `json:"kind"`
	Company       string             `json:"company"`
	ClientID      uuid.UUID          `json:"client_id"`
	ClientName    string             `json:"client_name,omitempty"`
	Title         string             `json:"title"`
	IssueDate     string             `json:"issue_date"`
	Currency      string             `json:"currency"`
	ExchangeRate  string             `json:"exchange_rate"`
	RateSource    string             `json:"rate_source"`
	Subtotal      string             `json:"subtotal"`
	Tax           string             `json:"tax"`
	Total         string             `json:"total"`
	SubtotalINR   string             `json:"subtotal_inr"`
	TaxINR        string             `json:"tax_inr"`
	TotalINR      string             `json:"total_inr"`
	TaxType       string             `json:"tax_type"`
	CGSTAmount    string             `json:"cgst_amount,omitempty"`
	SGSTAmount    string             `json:"sgst_amount,omitempty"`
	IGSTAmount    string             `json:"igst_amount,omitempty"`
	PaymentStatus string             `json:"payment_status"`
	Note          string             `json:"note,omitempty"`
	PDFDocumentID string             `json:"pdf_document_id,omitempty"`
	LineItems     []LineItemResponse `json:"line_items,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type InvoiceService interface {
	Create(ctx context.Context, req CreateInvoiceRequest, actorID *uuid.UUID) (*InvoiceResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error)
	GetByNumber(ctx context.Context, invoiceNo string) (*InvoiceResponse, error)
	List(ctx context.Context, filter repository.InvoiceListFilter) (*InvoiceListResponse, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string, actorID *uuid.UUID) (*InvoiceResponse, error)
	Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error
	DownloadPDF(ctx context.Context, id uuid.UUID) (*StoredDocument, error)
}

type invoiceService struct {
	invoices    repository.InvoiceRepository
	clients     repository.ClientRepository
	audits      repository.AuditRepository
	engine      *currency.Engine
	provider    *rates.Provider
	numbering   NumberingService
	documents   DocumentService
	renderer    PDFRenderer
	broadcaster Broadcaster
	log         *logrus.Logger
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	clients repository.ClientRepository,
	audits repository.AuditRepository,
	engine *currency.Engine,
	provider *rates.Provider,
	numbering NumberingService,
	documents DocumentService,
	renderer PDFRenderer,
	broadcaster Broadcaster,
	log *logrus.Logger,
) InvoiceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &invoiceService{
		invoices:    invoices,
		clients:     clients,
		audits:      audits,
		engine:      engine,
		provider:    provider,
		numbering:   numbering,
		documents:   documents,
		renderer:    renderer,
		broadcaster: broadcaster,
		log:         log,
	}
}

// Create runs the full issuance pipeline: validate, compute totals against
// the current rate snapshot, allocate a document number, persist, render and
// chunk-store the PDF, then notify. The invoice survives even when rendering
// or storage fails; only the PDF reference is left empty in that case.
func (s *invoiceService) Create(ctx context.Context, req CreateInvoiceRequest, actorID *uuid.UUID) (*InvoiceResponse, error) {
	if !model.IsValidCompany(req.Company) {
		return nil, fmt.Errorf("unknown company code %q", req.Company)
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	if !currency.IsSupported(req.Currency) {
		return nil, fmt.Errorf("unsupported currency %q", req.Currency)
	}
	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid issue date %q: %w", req.IssueDate, err)
	}

	client, err := s.clients.FindByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, req.ClientID)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	profile := currency.ClientProfile{Country: client.Country, State: client.State}
	items := make([]currency.LineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, currency.LineItem{Name: item.Name, Description: item.Description, Amount: item.Amount})
	}

	snap := s.provider.Snapshot(ctx)
	totals := s.engine.ComputeTotals(items, req.Currency, profile, snap)

	alloc, err := s.numbering.Allocate(ctx, req.Company, req.Kind, PeriodOf(issueDate))
	if err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		InvoiceNo:       alloc.Number,
		Kind:            req.Kind,
		Company:         req.Company,
		ClientID:        client.ID,
		Title:           req.Title,
		IssueDate:       issueDate,
		Currency:        totals.Currency,
		ExchangeRate:    totals.ExchangeRate,
		RateSource:      string(totals.RateSource),
		SubtotalINR:     totals.SubtotalINR,
		TaxINR:          totals.TaxINR,
		TotalINR:        totals.TotalINR,
		SubtotalDisplay: totals.SubtotalDisplay,
		TaxDisplay:      totals.TaxDisplay,
		TotalDisplay:    totals.TotalDisplay,
		TaxType:         string(totals.Breakdown.Kind),
		CGSTAmount:      totals.Breakdown.CGSTAmount,
		SGSTAmount:      totals.Breakdown.SGSTAmount,
		IGSTAmount:      totals.Breakdown.IGSTAmount,
		PaymentStatus:   model.PaymentPending,
		Note:            req.Note,
	}
	for i, item := range req.LineItems {
		invoice.LineItems = append(invoice.LineItems, model.InvoiceLineItem{
			Position:    i,
			Name:        item.Name,
			Description: item.Description,
			Amount:      currency.SanitizeAmount(item.Amount),
		})
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", req.Kind, err)
	}
	invoice.Client = client

	if docID, renderErr := s.renderAndStore(ctx, invoice); renderErr != nil {
		s.log.WithError(renderErr).WithField("invoice_no", invoice.InvoiceNo).Error("pdf generation failed, document saved without pdf")
	} else {
		invoice.PDFDocumentID = docID
		if err := s.invoices.Update(ctx, invoice); err != nil {
			s.log.WithError(err).WithField("invoice_no", invoice.InvoiceNo).Error("failed to link pdf document")
		}
	}

	s.recordCreateAudit(ctx, invoice, actorID)

	if s.broadcaster != nil {
		event := "invoice_created"
		if invoice.Kind == model.KindProforma {
			event = "proforma_created"
		}
		s.broadcaster.BroadcastDocumentEvent(event, toInvoiceResponse(invoice))
	}

	s.log.WithFields(logrus.Fields{
		"invoice_no":  invoice.InvoiceNo,
		"kind":        invoice.Kind,
		"company":     invoice.Company,
		"currency":    invoice.Currency,
		"total_inr":   invoice.TotalINR.StringFixed(2),
		"rate_source": invoice.RateSource,
	}).Info("document created")

	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) renderAndStore(ctx context.Context, invoice *model.Invoice) (string, error) {
	if s.renderer == nil {
		return "", errors.New("no renderer configured")
	}
	pdf, err := s.renderer.Render(invoice)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	docID, err := s.documents.Store(ctx, invoice.InvoiceNo, "application/pdf", pdf)
	if err != nil {
		return "", fmt.Errorf("store: %w", err)
	}
	return docID, nil
}

func (s *invoiceService) recordCreateAudit(ctx context.Context, invoice *model.Invoice, actorID *uuid.UUID) {
	action := model.ActionCreateInvoice
	if invoice.Kind == model.KindProforma {
		action = model.ActionCreateProforma
	}
	details, _ := json.Marshal(map[string]string{
		"company":     invoice.Company,
		"currency":    invoice.Currency,
		"total_inr":   invoice.TotalINR.StringFixed(2),
		"rate_source": invoice.RateSource,
	})
	if err := s.audits.Log(ctx, &model.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityID:   invoice.InvoiceNo,
		EntityName: invoice.Title,
		Details:    string(details),
	}); err != nil {
		s.log.WithError(err).Warn("failed to write audit log")
	}

	// A static-rate invoice means every live tier was unavailable. Flag it
	// for later reconciliation against the actual rate of the day.
	if invoice.RateSource == model.RateSourceStatic && invoice.Currency != "INR" {
		rateDetails, _ := json.Marshal(map[string]string{
			"currency":      invoice.Currency,
			"exchange_rate": invoice.ExchangeRate.String(),
		})
		if err := s.audits.Log(ctx, &model.AuditLog{
			UserID:   actorID,
			Action:   model.ActionRateDegradation,
			EntityID: invoice.InvoiceNo,
			Details:  string(rateDetails),
		}); err != nil {
			s.log.WithError(err).Warn("failed to write rate degradation audit log")
		}
	}
}

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
		}
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) GetByNumber(ctx context.Context, invoiceNo string) (*InvoiceResponse, error) {
	invoice, err := s.invoices.FindByNumber(ctx, invoiceNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, invoiceNo)
		}
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) List(ctx context.Context, filter repository.InvoiceListFilter) (*InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	resp := &InvoiceListResponse{
		Invoices: make([]InvoiceResponse, 0, len(invoices)),
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}
	for i := range invoices {
		resp.Invoices = append(resp.Invoices, *toInvoiceResponse(&invoices[i]))
	}
	return resp, nil
}

func (s *invoiceService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string, actorID *uuid.UUID) (*InvoiceResponse, error) {
	if status != model.PaymentPending && status != model.PaymentPartial && status != model.PaymentPaid {
		return nil, fmt.Errorf("invalid payment status %q", status)
	}

	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
		}
		return nil, err
	}

	previous := invoice.PaymentStatus
	invoice.PaymentStatus = status
	if err := s.invoices.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	details, _ := json.Marshal(map[string]string{"from": previous, "to": status})
	if err := s.audits.Log(ctx, &model.AuditLog{
		UserID:   actorID,
		Action:   model.ActionUpdatePayment,
		EntityID: invoice.InvoiceNo,
		Details:  string(details),
	}); err != nil {
		s.log.WithError(err).Warn("failed to write audit log")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastDocumentEvent("payment_status_updated", toInvoiceResponse(invoice))
	}

	return toInvoiceResponse(invoice), nil
}

// Delete removes the document and its stored PDF chunks. The consumed number
// is never reissued.
func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
		}
		return err
	}

	if err := s.invoices.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if invoice.PDFDocumentID != "" {
		if err := s.documents.Delete(ctx, invoice.PDFDocumentID); err != nil {
			s.log.WithError(err).WithField("document_id", invoice.PDFDocumentID).Warn("failed to delete stored pdf")
		}
	}

	if err := s.audits.Log(ctx, &model.AuditLog{
		UserID:     actorID,
		Action:     model.ActionDeleteInvoice,
		EntityID:   invoice.InvoiceNo,
		EntityName: invoice.Title,
	}); err != nil {
		s.log.WithError(err).Warn("failed to write audit log")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastDocumentEvent("invoice_deleted", map[string]string{"invoice_no": invoice.InvoiceNo})
	}

	return nil
}

func (s *invoiceService) DownloadPDF(ctx context.Context, id uuid.UUID) (*StoredDocument, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, id)
		}
		return nil, err
	}
	if invoice.PDFDocumentID == "" {
		return nil, fmt.Errorf("%w: no pdf stored for %s", ErrDocumentNotFound, invoice.InvoiceNo)
	}
	doc, err := s.documents.Reconstruct(ctx, invoice.PDFDocumentID)
	if err != nil {
		return nil, err
	}
	if doc.InvoiceNo == "" {
		doc.InvoiceNo = invoice.InvoiceNo
	}
	return doc, nil
}

func toInvoiceResponse(invoice *model.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:            invoice.ID,
		InvoiceNo:     invoice.InvoiceNo,
		Kind:          invoice.Kind,
		Company:       invoice.Company,
		ClientID:      invoice.ClientID,
		Title:         invoice.Title,
		IssueDate:     invoice.IssueDate.Format("2006-01-02"),
		Currency:      invoice.Currency,
		ExchangeRate:  invoice.ExchangeRate.String(),
		RateSource:    invoice.RateSource,
		Subtotal:      invoice.SubtotalDisplay.StringFixed(2),
		Tax:           invoice.TaxDisplay.StringFixed(2),
		Total:         invoice.TotalDisplay.StringFixed(2),
		SubtotalINR:   invoice.SubtotalINR.StringFixed(2),
		TaxINR:        invoice.TaxINR.StringFixed(2),
		TotalINR:      invoice.TotalINR.StringFixed(2),
		TaxType:       invoice.TaxType,
		PaymentStatus: invoice.PaymentStatus,
		Note:          invoice.Note,
		PDFDocumentID: invoice.PDFDocumentID,
		CreatedAt:     invoice.CreatedAt,
	}
	if invoice.Client != nil {
		resp.ClientName = invoice.Client.ClientName
	}
	if invoice.TaxType == model.TaxTypeGST {
		resp.CGSTAmount = invoice.CGSTAmount.StringFixed(2)
		resp.SGSTAmount = invoice.SGSTAmount.StringFixed(2)
		resp.IGSTAmount = invoice.IGSTAmount.StringFixed(2)
	}
	for _, item := range invoice.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			ID:          item.ID,
			Position:    item.Position,
			Name:        item.Name,
			Description: item.Description,
			Amount:      item.Amount.StringFixed(2),
		})
	}
	return resp
}
