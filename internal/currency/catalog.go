package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an immutable reference entry of the supported-currency catalog.
// Only the exchange rate associated with a code changes at runtime, and that
// lives in rate snapshots, never here.
type Currency struct {
	Code          string
	Name          string
	Symbol        string
	Countries     []string // ordered: first entry is the canonical country name
	GSTApplicable bool
}

// catalogOrder fixes the iteration order for country lookups. Country→currency
// resolution is first-match-wins, so this order is part of the defaulting
// contract.
var catalogOrder = []string{
	"INR", "USD", "EUR", "GBP", "AED", "SGD", "AUD", "CAD", "CHF", "JPY",
	"KRW", "CNY", "THB", "MYR", "IDR", "VND", "PHP", "NZD", "ZAR", "EGP",
	"NGN", "BRL", "MXN", "ARS", "CLP", "COP", "PEN", "RUB", "TRY", "SAR",
	"QAR", "KWD", "BHD", "OMR", "JOD", "LBP", "ILS", "IRR", "IQD",
}

var catalog = map[string]Currency{
	"INR": {Code: "INR", Name: "Indian Rupee", Symbol: "₹", Countries: []string{"India", "Republic of India"}, GSTApplicable: true},
	"USD": {Code: "USD", Name: "US Dollar", Symbol: "$", Countries: []string{"United States", "USA", "US", "America"}},
	"EUR": {Code: "EUR", Name: "Euro", Symbol: "€", Countries: []string{"Germany", "France", "Italy", "Spain", "Netherlands", "Belgium", "Austria", "Portugal", "Finland", "Ireland", "Greece", "Luxembourg", "Slovenia", "Cyprus", "Malta", "Estonia", "Latvia", "Lithuania", "Slovakia", "Andorra", "Monaco", "San Marino", "Vatican City", "Czech Republic", "Hungary", "Romania", "Bulgaria", "Croatia", "Serbia", "Ukraine", "Belarus", "Moldova", "Bosnia and Herzegovina", "Montenegro", "North Macedonia", "Albania", "Kosovo", "Iceland", "Liechtenstein"}},
	"GBP": {Code: "GBP", Name: "British Pound", Symbol: "£", Countries: []string{"United Kingdom", "UK", "Great Britain", "England", "Scotland", "Wales", "Northern Ireland"}},
	"AED": {Code: "AED", Name: "UAE Dirham", Symbol: "د.إ", Countries: []string{"United Arab Emirates", "UAE", "Dubai", "Abu Dhabi"}},
	"SGD": {Code: "SGD", Name: "Singapore Dollar", Symbol: "S$", Countries: []string{"Singapore"}},
	"AUD": {Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Countries: []string{"Australia"}},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", Symbol: "C$", Countries: []string{"Canada"}},
	"CHF": {Code: "CHF", Name: "Swiss Franc", Symbol: "CHF", Countries: []string{"Switzerland"}},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Countries: []string{"Japan"}},
	"KRW": {Code: "KRW", Name: "South Korean Won", Symbol: "₩", Countries: []string{"South Korea", "Korea"}},
	"CNY": {Code: "CNY", Name: "Chinese Yuan", Symbol: "¥", Countries: []string{"China", "People's Republic of China"}},
	"THB": {Code: "THB", Name: "Thai Baht", Symbol: "฿", Countries: []string{"Thailand"}},
	"MYR": {Code: "MYR", Name: "Malaysian Ringgit", Symbol: "RM", Countries: []string{"Malaysia"}},
	"IDR": {Code: "IDR", Name: "Indonesian Rupiah", Symbol: "Rp", Countries: []string{"Indonesia"}},
	"VND": {Code: "VND", Name: "Vietnamese Dong", Symbol: "₫", Countries: []string{"Vietnam"}},
	"PHP": {Code: "PHP", Name: "Philippine Peso", Symbol: "₱", Countries: []string{"Philippines"}},
	"NZD": {Code: "NZD", Name: "New Zealand Dollar", Symbol: "NZ$", Countries: []string{"New Zealand"}},
	"ZAR": {Code: "ZAR", Name: "South African Rand", Symbol: "R", Countries: []string{"South Africa"}},
	"EGP": {Code: "EGP", Name: "Egyptian Pound", Symbol: "£", Countries: []string{"Egypt"}},
	"NGN": {Code: "NGN", Name: "Nigerian Naira", Symbol: "₦", Countries: []string{"Nigeria"}},
	"BRL": {Code: "BRL", Name: "Brazilian Real", Symbol: "R$", Countries: []string{"Brazil"}},
	"MXN": {Code: "MXN", Name: "Mexican Peso", Symbol: "$", Countries: []string{"Mexico"}},
	"ARS": {Code: "ARS", Name: "Argentine Peso", Symbol: "$", Countries: []string{"Argentina"}},
	"CLP": {Code: "CLP", Name: "Chilean Peso", Symbol: "$", Countries: []string{"Chile"}},
	"COP": {Code: "COP", Name: "Colombian Peso", Symbol: "$", Countries: []string{"Colombia"}},
	"PEN": {Code: "PEN", Name: "Peruvian Sol", Symbol: "S/", Countries: []string{"Peru"}},
	"RUB": {Code: "RUB", Name: "Russian Ruble", Symbol: "₽", Countries: []string{"Russia", "Russian Federation"}},
	"TRY": {Code: "TRY", Name: "Turkish Lira", Symbol: "₺", Countries: []string{"Turkey"}},
	"SAR": {Code: "SAR", Name: "Saudi Riyal", Symbol: "﷼", Countries: []string{"Saudi Arabia"}},
	"QAR": {Code: "QAR", Name: "Qatari Riyal", Symbol: "﷼", Countries: []string{"Qatar"}},
	"KWD": {Code: "KWD", Name: "Kuwaiti Dinar", Symbol: "د.ك", Countries: []string{"Kuwait"}},
	"BHD": {Code: "BHD", Name: "Bahraini Dinar", Symbol: "د.ب", Countries: []string{"Bahrain"}},
	"OMR": {Code: "OMR", Name: "Omani Rial", Symbol: "﷼", Countries: []string{"Oman"}},
	"JOD": {Code: "JOD", Name: "Jordanian Dinar", Symbol: "د.أ", Countries: []string{"Jordan"}},
	"LBP": {Code: "LBP", Name: "Lebanese Pound", Symbol: "ل.ل", Countries: []string{"Lebanon"}},
	"ILS": {Code: "ILS", Name: "Israeli Shekel", Symbol: "₪", Countries: []string{"Israel"}},
	"IRR": {Code: "IRR", Name: "Iranian Rial", Symbol: "﷼", Countries: []string{"Iran"}},
	"IQD": {Code: "IQD", Name: "Iraqi Dinar", Symbol: "ع.د", Countries: []string{"Iraq"}},
}

// staticRates are the fallback exchange rates, expressed as INR per 1 unit of
// the currency. Used when no live snapshot is available.
var staticRates = map[string]string{
	"INR": "1.0",
	"USD": "84.5",
	"EUR": "92.0",
	"GBP": "108.0",
	"AED": "23.0",
	"SGD": "63.5",
	"AUD": "56.0",
	"CAD": "61.5",
	"JPY": "0.57",
	"CHF": "98.0",
	"CNY": "11.8",
	"KRW": "0.063",
	"THB": "2.35",
	"MYR": "19.2",
	"IDR": "0.0054",
	"VND": "0.0034",
	"PHP": "1.48",
	"NZD": "51.0",
	"ZAR": "4.7",
	"RUB": "0.88",
	"TRY": "2.45",
	"SAR": "22.5",
	"QAR": "23.2",
	"KWD": "275.0",
	"BHD": "224.0",
	"OMR": "219.0",
	"EGP": "1.72",
	"NGN": "0.055",
	"BRL": "15.8",
	"MXN": "4.2",
	"ARS": "0.089",
	"CLP": "0.088",
	"COP": "0.020",
	"PEN": "22.8",
	"ILS": "22.9",
	"JOD": "119.0",
	"LBP": "0.056",
	"IRR": "0.0020",
	"IQD": "0.065",
}

// Get returns the catalog entry for a code.
func Get(code string) (Currency, bool) {
	c, ok := catalog[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// IsSupported reports whether code is in the catalog.
func IsSupported(code string) bool {
	_, ok := Get(code)
	return ok
}

// Symbol returns the display glyph for a code, defaulting to the rupee sign
// for unknown codes.
func Symbol(code string) string {
	if c, ok := Get(code); ok {
		return c.Symbol
	}
	return "₹"
}

// Codes returns all supported currency codes in catalog order.
func Codes() []string {
	out := make([]string, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// StaticRates returns a fresh copy of the static INR-per-unit rate table.
func StaticRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(staticRates))
	for code, raw := range staticRates {
		out[code] = decimal.RequireFromString(raw)
	}
	return out
}

// DefaultCurrencyForCountry resolves the currency most strongly associated
// with a country name. Precedence: exact match against a catalog country name,
// then partial match in either direction, both walked in catalog order so the
// first association wins. Unknown or empty countries default to INR.
func DefaultCurrencyForCountry(country string) string {
	needle := strings.ToLower(strings.TrimSpace(country))
	if needle == "" {
		return "INR"
	}

	for _, code := range catalogOrder {
		for _, name := range catalog[code].Countries {
			if strings.ToLower(name) == needle {
				return code
			}
		}
	}

	for _, code := range catalogOrder {
		for _, name := range catalog[code].Countries {
			lower := strings.ToLower(name)
			if strings.Contains(needle, lower) || strings.Contains(lower, needle) {
				return code
			}
		}
	}

	return "INR"
}

// AvailableCurrenciesForCountry lists the currencies a client from the given
// country may be invoiced in: their local currency plus the common
// international set. INR is always available.
func AvailableCurrenciesForCountry(country string) []string {
	local := DefaultCurrencyForCountry(country)
	seen := map[string]bool{}
	out := []string{}
	for _, code := range []string{local, "INR", "USD", "EUR", "GBP"} {
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}
