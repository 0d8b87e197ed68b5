package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestFormatGroupsDigits(t *testing.T) {
	require.Equal(t, "$1,234.50", Format(dec("1234.5"), USD, language.English))
	require.Equal(t, "₩24,000", Format(dec("24000.4"), KRW, language.Korean))
}

func TestBreakdownFormatted(t *testing.T) {
	b := ComputeBreakdown([]LineItem{{ID: "a", BaseCost: dec("10.00"), Quantity: 2, Currency: USD}}, "KR")
	out := b.Formatted(language.English, "US")
	require.Equal(t, USD, out.Currency)
	require.Equal(t, "$24.00", out.Subtotal)
	require.Equal(t, "$2.40", out.TaxEstimate)
	require.Equal(t, "$29.86", out.Total)
}

func TestBreakdownFormattedInDestinationCurrency(t *testing.T) {
	b := ComputeBreakdown([]LineItem{{ID: "a", BaseCost: dec("10.00"), Quantity: 2, Currency: USD}}, "KR")
	require.Equal(t, USD, b.Currency)

	out := b.Formatted(language.English, "kr")

	require.Equal(t, KRW, out.Currency)
	require.Equal(t, "₩31,200", out.Subtotal)
	require.Equal(t, "₩3,120", out.TaxEstimate)
	require.Equal(t, "₩38,818", out.Total)
}

func TestBreakdownIn(t *testing.T) {
	b := ComputeBreakdown([]LineItem{{ID: "a", BaseCost: dec("2600"), Quantity: 1, Currency: KRW}}, "US")

	same := b.In(KRW)
	require.Equal(t, b, same)

	usd := b.In(USD)
	require.Equal(t, USD, usd.Currency)
	requireDecimal(t, "2.00", usd.ItemsCost, "itemsCost")
	requireDecimal(t, "12.00", usd.ShippingEstimate, "shipping")
}

func TestParseLocale(t *testing.T) {
	require.Equal(t, language.English, ParseLocale(""))
	require.Equal(t, language.English, ParseLocale("not a locale!!"))
	require.Equal(t, language.Korean, ParseLocale("ko"))
}
