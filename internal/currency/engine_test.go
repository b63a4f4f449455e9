package currency

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("84.5"),
			"EUR": decimal.RequireFromString("91.2"),
			"JPY": decimal.RequireFromString("0.57"),
		},
		FetchedAt: time.Now(),
		Source:    SourceLive,
	}
}

func newTestEngine() *Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(log)
}

func TestSanitizeAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain integer", "1500", "1500"},
		{"plain decimal", "1234.56", "1234.56"},
		{"surrounding whitespace", "  99 ", "99"},
		{"currency symbol prefix", "₹2500", "2500"},
		{"dollar prefix", "$120.50", "120.50"},
		{"first numeral substring wins", "approx 750 or so", "750"},
		{"duplicated decimal point keeps first fraction", "12.34.56", "12.34"},
		{"negative floors to zero", "-50", "0"},
		{"explicit plus sign", "+80.5", "80.5"},
		{"no digits", "abc", "0"},
		{"empty", "", "0"},
		{"lone dot", ".", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeAmount(tt.input)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"SanitizeAmount(%q) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestSanitizeAmountIdempotent(t *testing.T) {
	inputs := []string{"1500", "₹2,500.75", "12.34.56", "abc", "-10", "  42.0  "}
	for _, input := range inputs {
		once := SanitizeAmount(input)
		twice := SanitizeAmount(once.String())
		assert.True(t, once.Equal(twice), "sanitize not idempotent for %q: %s vs %s", input, once, twice)
	}
}

func TestSanitizeAmountNeverNegative(t *testing.T) {
	for _, input := range []string{"-1", "-0.01", "-99999", "minus -5"} {
		assert.False(t, SanitizeAmount(input).IsNegative(), "negative result for %q", input)
	}
}

func TestIsIndianClient(t *testing.T) {
	tests := []struct {
		name    string
		country string
		want    bool
	}{
		{"india", "India", true},
		{"lowercase", "india", true},
		{"long form", "Republic of India", true},
		{"empty country fails open to domestic", "", true},
		{"whitespace only", "   ", true},
		{"usa", "United States", false},
		{"uk", "United Kingdom", false},
		{"japan", "Japan", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIndianClient(ClientProfile{Country: tt.country}))
		})
	}
}

func TestTaxGates(t *testing.T) {
	indian := ClientProfile{Country: "India", State: "Telangana"}
	foreign := ClientProfile{Country: "United States"}
	unknown := ClientProfile{}

	// GST and international tax are mutually exclusive for every profile.
	for _, p := range []ClientProfile{indian, foreign, unknown} {
		for _, cur := range []string{"INR", "USD", "JPY"} {
			assert.False(t, ShouldApplyGST(cur, p) && ShouldApplyInternationalTax(cur, p),
				"both gates open for %+v in %s", p, cur)
		}
	}

	assert.True(t, ShouldApplyGST("INR", indian))
	assert.True(t, ShouldApplyGST("inr", indian))
	assert.False(t, ShouldApplyGST("USD", indian), "tax follows invoice currency, not client")

	assert.True(t, ShouldApplyInternationalTax("INR", foreign))
	assert.False(t, ShouldApplyInternationalTax("USD", foreign))
	assert.False(t, ShouldApplyInternationalTax("INR", unknown), "no country means domestic treatment")
}

func TestComputeTaxTelanganaSplitsGST(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "India", State: "Telangana"}

	b := e.ComputeTax(decimal.NewFromInt(10000), p.State, p)

	assert.Equal(t, TaxGST, b.Kind)
	assert.True(t, b.CGSTAmount.Equal(decimal.NewFromInt(900)), "CGST = %s", b.CGSTAmount)
	assert.True(t, b.SGSTAmount.Equal(decimal.NewFromInt(900)), "SGST = %s", b.SGSTAmount)
	assert.True(t, b.IGSTAmount.IsZero())
	assert.True(t, b.TotalTax.Equal(decimal.NewFromInt(1800)))
}

func TestComputeTaxOtherStateUsesIGST(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "India", State: "Karnataka"}

	b := e.ComputeTax(decimal.NewFromInt(10000), p.State, p)

	assert.Equal(t, TaxGST, b.Kind)
	assert.True(t, b.IGSTAmount.Equal(decimal.NewFromInt(1800)), "IGST = %s", b.IGSTAmount)
	assert.True(t, b.CGSTAmount.IsZero())
	assert.True(t, b.SGSTAmount.IsZero())
	assert.True(t, b.TotalTax.Equal(decimal.NewFromInt(1800)))
}

func TestComputeTaxInternationalFlatRate(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "United States"}

	b := e.ComputeTax(decimal.NewFromInt(50000), "", p)

	assert.Equal(t, TaxInternational, b.Kind)
	assert.True(t, b.InternationalAmount.Equal(decimal.NewFromInt(9000)), "international = %s", b.InternationalAmount)
	assert.True(t, b.TotalTax.Equal(decimal.NewFromInt(9000)))
	assert.True(t, b.CGSTAmount.IsZero())
	assert.True(t, b.IGSTAmount.IsZero())
}

func TestComputeTotalsDomesticINR(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "India", State: "Telangana"}
	items := []LineItem{
		{Name: "Consulting", Amount: "6000"},
		{Name: "Support", Amount: "4000"},
	}

	totals := e.ComputeTotals(items, "INR", p, testSnapshot())

	assert.Equal(t, "INR", totals.Currency)
	assert.True(t, totals.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.True(t, totals.SubtotalINR.Equal(decimal.NewFromInt(10000)))
	assert.True(t, totals.TaxINR.Equal(decimal.NewFromInt(1800)))
	assert.True(t, totals.TotalINR.Equal(decimal.NewFromInt(11800)))
	assert.Equal(t, TaxGST, totals.Breakdown.Kind)
	// INR invoice: display equals INR representation
	assert.True(t, totals.TotalDisplay.Equal(totals.TotalINR))
}

func TestComputeTotalsInternationalClientINRInvoice(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "United States"}
	items := []LineItem{{Name: "License", Amount: "50000"}}

	totals := e.ComputeTotals(items, "INR", p, testSnapshot())

	assert.Equal(t, TaxInternational, totals.Breakdown.Kind)
	assert.True(t, totals.TaxINR.Equal(decimal.NewFromInt(9000)))
	assert.True(t, totals.TotalINR.Equal(decimal.NewFromInt(59000)))
}

func TestComputeTotalsForeignCurrencyNoTax(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "Japan"}
	items := []LineItem{{Name: "Services", Amount: "100000"}}

	totals := e.ComputeTotals(items, "JPY", p, testSnapshot())

	assert.Equal(t, TaxNone, totals.Breakdown.Kind)
	assert.True(t, totals.TaxINR.IsZero())
	assert.True(t, totals.SubtotalDisplay.Equal(decimal.NewFromInt(100000)))
	// 100000 JPY at 0.57 INR each
	assert.True(t, totals.SubtotalINR.Equal(decimal.RequireFromString("57000")), "subtotal INR = %s", totals.SubtotalINR)
	assert.True(t, totals.TotalDisplay.Equal(totals.SubtotalDisplay))
	assert.Equal(t, SourceLive, totals.RateSource)
}

func TestComputeTotalsSumsBeforeConverting(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "United States"}
	snap := testSnapshot()
	items := []LineItem{
		{Amount: "10.01"},
		{Amount: "20.02"},
		{Amount: "30.03"},
	}

	totals := e.ComputeTotals(items, "USD", p, snap)

	wantDisplay := decimal.RequireFromString("60.06")
	require.True(t, totals.SubtotalDisplay.Equal(wantDisplay))
	// One conversion of the sum, not the sum of per-line conversions.
	wantINR := wantDisplay.Mul(decimal.RequireFromString("84.5"))
	assert.True(t, totals.SubtotalINR.Equal(wantINR), "subtotal INR = %s, want %s", totals.SubtotalINR, wantINR)
}

func TestComputeTotalsSanitizesDirtyAmounts(t *testing.T) {
	e := newTestEngine()
	p := ClientProfile{Country: "India", State: "Karnataka"}
	items := []LineItem{
		{Amount: "₹5000"},
		{Amount: "-200"},
		{Amount: "nonsense"},
	}

	totals := e.ComputeTotals(items, "INR", p, testSnapshot())

	assert.True(t, totals.SubtotalINR.Equal(decimal.NewFromInt(5000)))
}

func TestComputeTotalsUnknownCurrencyDegradesToParity(t *testing.T) {
	e := newTestEngine()
	snap := Snapshot{Rates: map[string]decimal.Decimal{}, Source: SourceLive}
	items := []LineItem{{Amount: "100"}}

	totals := e.ComputeTotals(items, "XXX", ClientProfile{Country: "Germany"}, snap)

	assert.True(t, totals.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.True(t, totals.SubtotalINR.Equal(decimal.NewFromInt(100)))
}

func TestConvertRoundTrip(t *testing.T) {
	e := newTestEngine()
	snap := testSnapshot()

	amount := decimal.RequireFromString("1234.56")
	inr := e.ConvertToINR(amount, "USD", snap)
	back := e.ConvertFromINR(inr, "USD", snap)

	assert.True(t, back.Sub(amount).Abs().LessThan(decimal.RequireFromString("0.0000001")),
		"round trip drift: %s -> %s", amount, back)
}

func TestFormatAmountRoundsAtDisplay(t *testing.T) {
	assert.Equal(t, "₹1234.57", FormatAmount(decimal.RequireFromString("1234.567"), "INR"))
	assert.Equal(t, "$99.90", FormatAmount(decimal.RequireFromString("99.9"), "USD"))
	// Unknown code falls back to the rupee glyph.
	assert.Equal(t, "₹5.00", FormatAmount(decimal.NewFromInt(5), "ZZZ"))
}
