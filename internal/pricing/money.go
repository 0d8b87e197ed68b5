package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is an ISO 4217 code supported by the storefront.
type Currency string

const (
	USD Currency = "USD"
	KRW Currency = "KRW"
)

// DomesticCountry is the destination served by the domestic shipping and tax policy.
const DomesticCountry = "KR"

// usdToKRW is an approximate fixed rate used only for estimates. It is not a live quote.
var usdToKRW = decimal.NewFromInt(1300)

// ParseCurrency normalises a currency code and reports whether it is supported.
func ParseCurrency(code string) (Currency, bool) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", false
	}
	switch c := Currency(unit.String()); c {
	case USD, KRW:
		return c, true
	}
	return "", false
}

// CurrencyForCountry returns the display currency implied by a destination country.
func CurrencyForCountry(country string) Currency {
	if normalizeCountry(country) == DomesticCountry {
		return KRW
	}
	return USD
}

// Scale returns the number of minor-unit digits for the currency (USD 2, KRW 0).
func (c Currency) Scale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Symbol returns the narrow display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "$"
	case KRW:
		return "₩"
	}
	return string(c) + " "
}

// Convert translates an amount between supported currencies using the fixed estimate rate.
// The result is rounded to the target currency's minor unit.
func Convert(amount decimal.Decimal, from, to Currency) decimal.Decimal {
	if from == to || from == "" || to == "" {
		return amount
	}
	var out decimal.Decimal
	switch {
	case from == USD && to == KRW:
		out = amount.Mul(usdToKRW)
	case from == KRW && to == USD:
		out = amount.Div(usdToKRW)
	default:
		out = amount
	}
	return out.Round(to.Scale())
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
