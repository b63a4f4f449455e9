package currency

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Source tags where a rate snapshot came from, so persisted invoices record
// whether they were priced from live or fallback data.
type Source string

const (
	SourceLive   Source = "live"
	SourceStatic Source = "static"
)

// Snapshot is an immutable view of INR-per-unit exchange rates. Snapshots are
// replaced wholesale on refresh, never merged.
type Snapshot struct {
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
	Source    Source
}

// Rate looks up the INR-per-unit rate for a code. INR is always 1.
func (s Snapshot) Rate(code string) (decimal.Decimal, bool) {
	if strings.EqualFold(code, "INR") {
		return decimal.NewFromInt(1), true
	}
	r, ok := s.Rates[strings.ToUpper(code)]
	return r, ok
}

// StaticSnapshot builds a snapshot from the catalog's static rate table.
func StaticSnapshot() Snapshot {
	return Snapshot{
		Rates:     StaticRates(),
		FetchedAt: time.Now(),
		Source:    SourceStatic,
	}
}

// TaxKind discriminates the TaxBreakdown variants. Exactly one variant's
// fields are populated per computed breakdown.
type TaxKind string

const (
	TaxGST           TaxKind = "gst"           // Indian client, INR invoice: CGST+SGST or IGST
	TaxInternational TaxKind = "international" // non-Indian client, INR invoice: flat rate
	TaxNone          TaxKind = "none"          // foreign-currency invoice: no Indian tax attaches
)

// TaxBreakdown is the tagged result of tax computation. Rates are percentages.
type TaxBreakdown struct {
	Kind TaxKind

	// GST variant
	CGSTRate   decimal.Decimal
	SGSTRate   decimal.Decimal
	IGSTRate   decimal.Decimal
	CGSTAmount decimal.Decimal
	SGSTAmount decimal.Decimal
	IGSTAmount decimal.Decimal

	// International variant
	InternationalRate   decimal.Decimal
	InternationalAmount decimal.Decimal

	TotalTax decimal.Decimal
}

// ClientProfile is the read-only slice of client data the engine needs.
type ClientProfile struct {
	Country string
	State   string
}

// LineItem is a single service row as entered. Amount is the raw user input
// in the invoice's selected currency and is sanitized before use.
type LineItem struct {
	Name        string
	Description string
	Amount      string
}

// Totals is the finalized amount contract handed to rendering and persistence.
// Values retain full precision; rounding to 2dp happens only when formatting.
type Totals struct {
	Currency     string
	ExchangeRate decimal.Decimal
	RateSource   Source

	SubtotalINR decimal.Decimal
	TaxINR      decimal.Decimal
	TotalINR    decimal.Decimal

	SubtotalDisplay decimal.Decimal
	TaxDisplay      decimal.Decimal
	TotalDisplay    decimal.Decimal

	Breakdown TaxBreakdown
}

var (
	hundred     = decimal.NewFromInt(100)
	gstRate     = decimal.NewFromInt(18)
	gstHalfRate = decimal.NewFromInt(9)

	numberPattern  = regexp.MustCompile(`[-+]?\d*\.?\d+`)
	nonNumericScan = regexp.MustCompile(`[^0-9.]`)
)

// SanitizeAmount parses a possibly-dirty monetary input (currency symbols,
// separators, duplicated decimal points) into a non-negative decimal.
// The first decimal numeral substring wins; with multiple decimal points only
// the first fractional component is kept; anything non-numeric yields zero.
// Idempotent: sanitizing an already-sanitized value is a no-op.
func SanitizeAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	if m := numberPattern.FindString(s); m != "" {
		if d, err := decimal.NewFromString(m); err == nil {
			if d.Sign() < 0 {
				return decimal.Zero
			}
			return d
		}
	}

	// Aggressive fallback: strip everything but digits and dots, then keep
	// only the first fractional part.
	cleaned := nonNumericScan.ReplaceAllString(s, "")
	parts := strings.SplitN(cleaned, ".", 3)
	if len(parts) > 2 {
		cleaned = parts[0] + "." + parts[1]
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

// IsIndianClient reports whether the client falls under the domestic GST
// regime. Absent country data fails open toward domestic treatment.
func IsIndianClient(p ClientProfile) bool {
	country := strings.ToLower(strings.TrimSpace(p.Country))
	if country == "" {
		return true
	}
	return strings.Contains(country, "india") || country == "republic of india"
}

// ShouldApplyGST reports whether domestic GST attaches: the invoice must be
// INR-denominated and the client Indian. Tax jurisdiction follows the invoice
// currency, not the client's currency preference.
func ShouldApplyGST(invoiceCurrency string, p ClientProfile) bool {
	return strings.EqualFold(invoiceCurrency, "INR") && IsIndianClient(p)
}

// ShouldApplyInternationalTax reports whether the flat international rate
// attaches: INR-denominated invoice to a non-Indian client.
func ShouldApplyInternationalTax(invoiceCurrency string, p ClientProfile) bool {
	if !strings.EqualFold(invoiceCurrency, "INR") {
		return false
	}
	if strings.TrimSpace(p.Country) == "" {
		return false
	}
	return !IsIndianClient(p)
}

// Engine performs the multi-currency tax and amount computations. It is pure
// given a rate snapshot; the logger only records recoverable degradations
// (unknown currency codes, absent client countries).
type Engine struct {
	log *logrus.Logger
}

func NewEngine(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{log: log}
}

// rate resolves the INR-per-unit rate for a code against a snapshot. Unknown
// codes degrade to 1 (INR-equivalent) — a display concern for informational
// invoices, not a hard failure — and are logged for later reconciliation.
func (e *Engine) rate(snap Snapshot, code string) decimal.Decimal {
	if r, ok := snap.Rate(code); ok && r.Sign() > 0 {
		return r
	}
	e.log.WithFields(logrus.Fields{
		"currency":    code,
		"rate_source": snap.Source,
	}).Warn("unknown or non-positive exchange rate, treating as INR-equivalent")
	return decimal.NewFromInt(1)
}

// ConvertToINR converts an amount in fromCurrency to INR.
func (e *Engine) ConvertToINR(amount decimal.Decimal, fromCurrency string, snap Snapshot) decimal.Decimal {
	if strings.EqualFold(fromCurrency, "INR") {
		return amount
	}
	return amount.Mul(e.rate(snap, fromCurrency))
}

// ConvertFromINR converts an INR amount to toCurrency.
func (e *Engine) ConvertFromINR(amountINR decimal.Decimal, toCurrency string, snap Snapshot) decimal.Decimal {
	if strings.EqualFold(toCurrency, "INR") {
		return amountINR
	}
	return amountINR.Div(e.rate(snap, toCurrency))
}

// ComputeTax computes the tax breakdown for an INR-equivalent amount.
// Non-Indian clients draw the flat 18% international rate; Indian clients in
// Telangana split 18% into 9% CGST + 9% SGST (intra-state); every other Indian
// state draws 18% IGST (inter-state). The amount must already be in INR — tax
// law attaches to INR-denominated values only.
func (e *Engine) ComputeTax(amountINR decimal.Decimal, clientState string, p ClientProfile) TaxBreakdown {
	amountINR = SanitizeAmount(amountINR.String())

	if !IsIndianClient(p) {
		amount := amountINR.Mul(gstRate).Div(hundred)
		return TaxBreakdown{
			Kind:                TaxInternational,
			InternationalRate:   gstRate,
			InternationalAmount: amount,
			TotalTax:            amount,
		}
	}

	if strings.TrimSpace(p.Country) == "" {
		e.log.WithField("state", clientState).Warn("client has no country, defaulting to domestic GST treatment")
	}

	b := TaxBreakdown{Kind: TaxGST}
	if strings.EqualFold(strings.TrimSpace(clientState), "telangana") {
		b.CGSTRate = gstHalfRate
		b.SGSTRate = gstHalfRate
		b.CGSTAmount = amountINR.Mul(gstHalfRate).Div(hundred)
		b.SGSTAmount = amountINR.Mul(gstHalfRate).Div(hundred)
	} else {
		b.IGSTRate = gstRate
		b.IGSTAmount = amountINR.Mul(gstRate).Div(hundred)
	}
	b.TotalTax = b.CGSTAmount.Add(b.SGSTAmount).Add(b.IGSTAmount)
	return b
}

// ComputeTotals computes subtotal, tax and total for a document in both INR
// and the selected display currency. Line amounts are sanitized and summed in
// the display currency first, then converted to INR once, so per-line
// conversion rounding cannot compound.
func (e *Engine) ComputeTotals(items []LineItem, selectedCurrency string, p ClientProfile, snap Snapshot) Totals {
	selectedCurrency = strings.ToUpper(strings.TrimSpace(selectedCurrency))
	if selectedCurrency == "" {
		selectedCurrency = "INR"
	}

	subtotalDisplay := decimal.Zero
	for _, item := range items {
		subtotalDisplay = subtotalDisplay.Add(SanitizeAmount(item.Amount))
	}
	subtotalINR := e.ConvertToINR(subtotalDisplay, selectedCurrency, snap)

	breakdown := TaxBreakdown{Kind: TaxNone}
	if ShouldApplyGST(selectedCurrency, p) || ShouldApplyInternationalTax(selectedCurrency, p) {
		breakdown = e.ComputeTax(subtotalINR, p.State, p)
	}

	taxINR := breakdown.TotalTax
	taxDisplay := e.ConvertFromINR(taxINR, selectedCurrency, snap)

	return Totals{
		Currency:        selectedCurrency,
		ExchangeRate:    e.rate(snap, selectedCurrency),
		RateSource:      snap.Source,
		SubtotalINR:     subtotalINR,
		TaxINR:          taxINR,
		TotalINR:        subtotalINR.Add(taxINR),
		SubtotalDisplay: subtotalDisplay,
		TaxDisplay:      taxDisplay,
		TotalDisplay:    subtotalDisplay.Add(taxDisplay),
		Breakdown:       breakdown,
	}
}

// FormatAmount renders an amount for display: 2dp with the currency glyph.
// Rounding happens here and nowhere earlier.
func FormatAmount(amount decimal.Decimal, code string) string {
	return Symbol(code) + amount.StringFixed(2)
}
