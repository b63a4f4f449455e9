package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCurrencyForCountry(t *testing.T) {
	tests := []struct {
		name    string
		country string
		want    string
	}{
		{"exact match", "United States", "USD"},
		{"case insensitive", "united states", "USD"},
		{"alias", "USA", "USD"},
		{"uk alias", "UK", "GBP"},
		{"india", "India", "INR"},
		{"uae city alias", "Dubai", "AED"},
		{"partial in needle", "The United Kingdom of Great Britain", "GBP"},
		{"unknown defaults to inr", "Atlantis", "INR"},
		{"empty defaults to inr", "", "INR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultCurrencyForCountry(tt.country))
		})
	}
}

func TestAvailableCurrenciesForCountry(t *testing.T) {
	got := AvailableCurrenciesForCountry("Japan")
	assert.Equal(t, []string{"JPY", "INR", "USD", "EUR", "GBP"}, got)

	// Local currency already in the common set: no duplicates.
	got = AvailableCurrenciesForCountry("United States")
	assert.Equal(t, []string{"USD", "INR", "EUR", "GBP"}, got)

	got = AvailableCurrenciesForCountry("India")
	assert.Equal(t, []string{"INR", "USD", "EUR", "GBP"}, got)
}

func TestStaticRatesCoverCatalog(t *testing.T) {
	static := StaticRates()
	for _, code := range Codes() {
		if code == "INR" {
			continue
		}
		rate, ok := static[code]
		require.True(t, ok, "no static rate for %s", code)
		assert.True(t, rate.IsPositive(), "non-positive static rate for %s", code)
	}
}

func TestStaticRatesReturnsCopy(t *testing.T) {
	first := StaticRates()
	delete(first, "USD")
	second := StaticRates()
	_, ok := second["USD"]
	assert.True(t, ok, "mutating a returned map must not affect the table")
}

func TestSymbolFallback(t *testing.T) {
	assert.Equal(t, "$", Symbol("USD"))
	assert.Equal(t, "₹", Symbol("INR"))
	assert.Equal(t, "₹", Symbol("nope"))
}

func TestSnapshotRateINRAlwaysOne(t *testing.T) {
	one := decimal.NewFromInt(1)

	snap := Snapshot{} // no rates at all
	rate, ok := snap.Rate("INR")
	require.True(t, ok)
	assert.True(t, rate.Equal(one))

	rate, ok = snap.Rate("inr")
	require.True(t, ok)
	assert.True(t, rate.Equal(one))

	_, ok = snap.Rate("USD")
	assert.False(t, ok)
}
