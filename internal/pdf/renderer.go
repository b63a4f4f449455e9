// Package pdf renders invoices and proformas as single-page PDF documents.
// The writer emits the PDF object graph directly; layout is a fixed
// letterhead template shared by all issuing companies.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"invoicing-backend/internal/currency"
	"invoicing-backend/internal/model"
)

// Renderer produces printable documents from persisted invoices.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces a complete single-page PDF for the document. The output is
// deterministic for a given invoice, which keeps stored chunks reproducible.
func (r *Renderer) Render(invoice *model.Invoice) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("nil invoice")
	}

	var content bytes.Buffer
	y := 780

	line := func(size int, text string) {
		fmt.Fprintf(&content, "BT /F1 %d Tf 50 %d Td (%s) Tj ET\n", size, y, escapeText(text))
		y -= size + 8
	}

	title := "INVOICE"
	if invoice.Kind == model.KindProforma {
		title = "PROFORMA INVOICE"
	}
	line(18, fmt.Sprintf("%s  %s", title, invoice.InvoiceNo))
	line(11, fmt.Sprintf("Issued by %s on %s", invoice.Company, invoice.IssueDate.Format("02 Jan 2006")))
	if invoice.Client != nil {
		line(11, fmt.Sprintf("Billed to: %s", invoice.Client.ClientName))
		if invoice.Client.Address != "" {
			line(10, invoice.Client.Address)
		}
		if invoice.Client.GSTIN != "" {
			line(10, fmt.Sprintf("GSTIN: %s", invoice.Client.GSTIN))
		}
	}
	if invoice.Title != "" {
		line(12, invoice.Title)
	}
	y -= 10

	for _, item := range invoice.LineItems {
		line(11, fmt.Sprintf("%d. %s  %s", item.Position+1, item.Name, currency.FormatAmount(item.Amount, invoice.Currency)))
		if item.Description != "" {
			line(9, "   "+item.Description)
		}
	}
	y -= 10

	line(11, fmt.Sprintf("Subtotal: %s", currency.FormatAmount(invoice.SubtotalDisplay, invoice.Currency)))
	switch invoice.TaxType {
	case model.TaxTypeGST:
		if invoice.IGSTAmount.IsPositive() {
			line(11, fmt.Sprintf("IGST (18%%): %s", currency.FormatAmount(invoice.IGSTAmount, "INR")))
		} else {
			line(11, fmt.Sprintf("CGST (9%%): %s", currency.FormatAmount(invoice.CGSTAmount, "INR")))
			line(11, fmt.Sprintf("SGST (9%%): %s", currency.FormatAmount(invoice.SGSTAmount, "INR")))
		}
	case model.TaxTypeInternational:
		line(11, fmt.Sprintf("Tax (18%%): %s", currency.FormatAmount(invoice.TaxDisplay, invoice.Currency)))
	}
	line(13, fmt.Sprintf("Total: %s", currency.FormatAmount(invoice.TotalDisplay, invoice.Currency)))

	if invoice.Currency != "INR" {
		line(9, fmt.Sprintf("Exchange rate: 1 %s = %s INR (%s)", invoice.Currency, invoice.ExchangeRate.StringFixed(4), invoice.RateSource))
		line(9, fmt.Sprintf("INR equivalent: %s", currency.FormatAmount(invoice.TotalINR, "INR")))
	}
	if invoice.Note != "" {
		y -= 10
		line(9, "Note: "+invoice.Note)
	}

	return assemble(content.Bytes()), nil
}

// escapeText makes a string safe inside a PDF literal string. Non-ASCII runes
// are dropped since the base font carries no glyphs for them.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= 32 && r < 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// assemble wraps a content stream in the minimal object graph a conforming
// reader needs: catalog, page tree, one page, one font, the stream, and a
// cross-reference table with correct byte offsets.
func assemble(stream []byte) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 6)

	buf.WriteString("%PDF-1.4\n")

	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	addObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")
	addObj("4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	addObj(fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefStart)

	return buf.Bytes()
}
