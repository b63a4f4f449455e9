package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind enum constants
const (
	KindInvoice  = "INVOICE"
	KindProforma = "PROFORMA"
)

// PaymentStatus enum constants
const (
	PaymentPending = "Pending"
	PaymentPartial = "Partial"
	PaymentPaid    = "Paid"
)

// TaxType enum constants; mirrors the tax breakdown variant persisted with
// the document so degraded or special-cased invoices can be audited later.
const (
	TaxTypeGST           = "gst"
	TaxTypeInternational = "international"
	TaxTypeNone          = "none"
)

// RateSource enum constants
const (
	RateSourceLive   = "live"
	RateSourceStatic = "static"
)

// Invoice is an issued invoice or proforma. Every monetary field is stored in
// both the selected display currency and its INR equivalent, because tax law
// attaches to INR-denominated values only. The exchange rate and its
// provenance are frozen at creation time.
type Invoice struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	Kind      string    `gorm:"type:varchar(10);not null;index" json:"kind"`    // INVOICE, PROFORMA
	Company   string    `gorm:"type:varchar(10);not null;index" json:"company"` // issuing company code
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client    *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	IssueDate time.Time `gorm:"type:date;not null;index" json:"issue_date"`

	Currency     string          `gorm:"type:varchar(5);not null;default:'INR'" json:"currency"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,8);not null;default:1" json:"exchange_rate"` // INR per 1 unit of Currency
	RateSource   string          `gorm:"type:varchar(10);not null;default:'static'" json:"rate_source"`

	SubtotalINR decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal_inr"`
	TaxINR      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_inr"`
	TotalINR    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_inr"`

	SubtotalDisplay decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal_display"`
	TaxDisplay      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_display"`
	TotalDisplay    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_display"`

	TaxType    string          `gorm:"type:varchar(15);not null;default:'none'" json:"tax_type"` // gst, international, none
	CGSTAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cgst_amount"`
	SGSTAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"sgst_amount"`
	IGSTAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"igst_amount"`

	PaymentStatus string `gorm:"type:varchar(10);not null;default:'Pending';index" json:"payment_status"`
	Note          string `gorm:"type:text" json:"note"`

	PDFDocumentID string `gorm:"type:varchar(80);index" json:"pdf_document_id"` // empty until chunk storage completes

	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceLineItem is one billed service row. Position preserves entry order;
// names are not unique.
type InvoiceLineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"` // in the invoice's selected currency
	CreatedAt   time.Time       `json:"created_at"`
}
