package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// MarkupRate is the fixed premium applied to base item cost.
var MarkupRate = decimal.RequireFromString("0.20")

// LineItem describes a configured product in the cart.
type LineItem struct {
	ID       string          `json:"id"`
	BaseCost decimal.Decimal `json:"baseCost"`
	Quantity int             `json:"quantity"`
	Currency Currency        `json:"currency"`
}

// Breakdown aggregates the derived price components shown before payment.
type Breakdown struct {
	Currency         Currency        `json:"currency"`
	ItemsCost        decimal.Decimal `json:"itemsCost"`
	Margin           decimal.Decimal `json:"margin"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingEstimate decimal.Decimal `json:"shippingEstimate"`
	TaxEstimate      decimal.Decimal `json:"taxEstimate"`
	Total            decimal.Decimal `json:"total"`
}

// ComputeBreakdown prices the cart for the destination country. Lines with a negative
// cost, a non-positive quantity or an unsupported currency contribute nothing instead
// of failing.
func ComputeBreakdown(items []LineItem, destination string) Breakdown {
	cur := breakdownCurrency(items, destination)

	itemsCost := decimal.Zero
	totalQty := 0
	for _, it := range items {
		c, ok := priceable(it)
		if !ok {
			continue
		}
		totalQty = addQuantity(totalQty, it.Quantity)
		itemsCost = itemsCost.Add(Convert(it.BaseCost, c, cur).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	margin := itemsCost.Mul(MarkupRate)
	subtotal := itemsCost.Add(margin)
	shipping := EstimateShipping(totalQty, destination, cur)
	tax := EstimateTax(subtotal, destination).Round(cur.Scale())

	return Breakdown{
		Currency:         cur,
		ItemsCost:        itemsCost,
		Margin:           margin,
		Subtotal:         subtotal,
		ShippingEstimate: shipping,
		TaxEstimate:      tax,
		Total:            subtotal.Add(shipping).Add(tax),
	}
}

// TotalQuantity sums the quantities of the lines that contribute to a breakdown.
func TotalQuantity(items []LineItem) int {
	total := 0
	for _, it := range items {
		if _, ok := priceable(it); ok {
			total = addQuantity(total, it.Quantity)
		}
	}
	return total
}

// maxTotalQuantity caps the summed quantity so shipping never sees a wrapped count.
const maxTotalQuantity = math.MaxInt32

func addQuantity(total, qty int) int {
	if qty >= maxTotalQuantity-total {
		return maxTotalQuantity
	}
	return total + qty
}

// priceable reports whether the line contributes to a breakdown and returns its currency.
func priceable(it LineItem) (Currency, bool) {
	if it.Quantity <= 0 || it.BaseCost.IsNegative() {
		return "", false
	}
	return ParseCurrency(string(it.Currency))
}

func breakdownCurrency(items []LineItem, destination string) Currency {
	for _, it := range items {
		if c, ok := priceable(it); ok {
			return c
		}
	}
	return CurrencyForCountry(destination)
}
