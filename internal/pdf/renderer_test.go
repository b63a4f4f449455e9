package pdf

import (
	"bytes"
	"testing"
	"time"

	"invoicing-backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() *model.Invoice {
	return &model.Invoice{
		InvoiceNo: "WT2501INV001",
		Kind:      model.KindInvoice,
		Company:   model.CompanyWT,
		Client: &model.Client{
			ClientName: "Deccan Traders (Hyderabad)",
			Address:    "12 Banjara Hills, Hyderabad",
			GSTIN:      "36AABCD1234E1Z5",
		},
		IssueDate:       time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Currency:        "INR",
		ExchangeRate:    decimal.NewFromInt(1),
		RateSource:      model.RateSourceLive,
		SubtotalDisplay: decimal.NewFromInt(10000),
		TaxDisplay:      decimal.NewFromInt(1800),
		TotalDisplay:    decimal.NewFromInt(11800),
		SubtotalINR:     decimal.NewFromInt(10000),
		TaxINR:          decimal.NewFromInt(1800),
		TotalINR:        decimal.NewFromInt(11800),
		TaxType:         model.TaxTypeGST,
		CGSTAmount:      decimal.NewFromInt(900),
		SGSTAmount:      decimal.NewFromInt(900),
		LineItems: []model.InvoiceLineItem{
			{Position: 0, Name: "Consulting", Amount: decimal.NewFromInt(10000)},
		},
	}
}

func TestRenderProducesWellFormedPDF(t *testing.T) {
	out, err := NewRenderer().Render(sampleInvoice())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-1.4\n")))
	assert.True(t, bytes.HasSuffix(out, []byte("%%EOF\n")))
	assert.Contains(t, string(out), "WT2501INV001")
	assert.Contains(t, string(out), "CGST \\(9%\\)")
	assert.Contains(t, string(out), "SGST \\(9%\\)")
	assert.Contains(t, string(out), "xref")
	assert.Contains(t, string(out), "trailer")
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer()
	first, err := r.Render(sampleInvoice())
	require.NoError(t, err)
	second, err := r.Render(sampleInvoice())
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical invoices must produce identical bytes")
}

func TestRenderProformaTitleAndRateFooter(t *testing.T) {
	inv := sampleInvoice()
	inv.Kind = model.KindProforma
	inv.InvoiceNo = "WT2501PRF001"
	inv.Currency = "USD"
	inv.ExchangeRate = decimal.NewFromFloat(84.5)
	inv.TaxType = model.TaxTypeNone

	out, err := NewRenderer().Render(inv)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "PROFORMA INVOICE")
	assert.Contains(t, s, "1 USD = 84.5000 INR")
	assert.NotContains(t, s, "CGST")
}

func TestRenderNilInvoice(t *testing.T) {
	_, err := NewRenderer().Render(nil)
	assert.Error(t, err)
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"paren (inside)", `paren \(inside\)`},
		{`back\slash`, `back\\slash`},
		{"rupees ₹ dropped", "rupees  dropped"},
		{"tab\tand\nnewline", "tabandnewline"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeText(tt.in))
	}
}
