package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Format renders an amount with the currency symbol and locale digit grouping.
func Format(amount decimal.Decimal, cur Currency, tag language.Tag) string {
	scale := cur.Scale()
	value, _ := amount.Round(scale).Float64()
	p := message.NewPrinter(tag)
	return p.Sprintf("%s%v", cur.Symbol(), number.Decimal(value, number.Scale(int(scale))))
}

// FormattedBreakdown holds display strings for every breakdown field.
type FormattedBreakdown struct {
	Currency         Currency `json:"currency"`
	ItemsCost        string   `json:"itemsCost"`
	Margin           string   `json:"margin"`
	Subtotal         string   `json:"subtotal"`
	ShippingEstimate string   `json:"shippingEstimate"`
	TaxEstimate      string   `json:"taxEstimate"`
	Total            string   `json:"total"`
}

// In converts every field to cur at the fixed estimate rate. Each converted field is
// rounded to the target minor unit.
func (b Breakdown) In(cur Currency) Breakdown {
	from := b.Currency
	if from == "" {
		from = USD
	}
	if cur == "" || cur == from {
		return b
	}
	return Breakdown{
		Currency:         cur,
		ItemsCost:        Convert(b.ItemsCost, from, cur),
		Margin:           Convert(b.Margin, from, cur),
		Subtotal:         Convert(b.Subtotal, from, cur),
		ShippingEstimate: Convert(b.ShippingEstimate, from, cur),
		TaxEstimate:      Convert(b.TaxEstimate, from, cur),
		Total:            Convert(b.Total, from, cur),
	}
}

// Formatted renders the breakdown for the given locale in the destination's display
// currency (KRW for KR, USD otherwise).
func (b Breakdown) Formatted(tag language.Tag, destination string) FormattedBreakdown {
	shown := b.In(CurrencyForCountry(destination))
	cur := shown.Currency
	if cur == "" {
		cur = USD
	}
	return FormattedBreakdown{
		Currency:         cur,
		ItemsCost:        Format(shown.ItemsCost, cur, tag),
		Margin:           Format(shown.Margin, cur, tag),
		Subtotal:         Format(shown.Subtotal, cur, tag),
		ShippingEstimate: Format(shown.ShippingEstimate, cur, tag),
		TaxEstimate:      Format(shown.TaxEstimate, cur, tag),
		Total:            Format(shown.Total, cur, tag),
	}
}

// ParseLocale resolves a BCP 47 locale, falling back to English.
func ParseLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		return language.English
	}
	return tag
}
