package pricing

import "github.com/shopspring/decimal"

type shippingPolicy struct {
	native        Currency
	base          decimal.Decimal
	perAdditional decimal.Decimal
}

var (
	domesticShipping = shippingPolicy{
		native:        KRW,
		base:          decimal.NewFromInt(3500),
		perAdditional: decimal.NewFromInt(1000),
	}
	internationalShipping = shippingPolicy{
		native:        USD,
		base:          decimal.RequireFromString("12.00"),
		perAdditional: decimal.RequireFromString("4.00"),
	}

	// domesticTaxRate is a placeholder policy pending business confirmation.
	domesticTaxRate = decimal.RequireFromString("0.10")
)

// EstimateShipping returns the flat-plus-per-unit shipping estimate in the requested currency.
func EstimateShipping(totalQuantity int, destination string, cur Currency) decimal.Decimal {
	if totalQuantity <= 0 {
		return decimal.Zero
	}
	policy := internationalShipping
	if normalizeCountry(destination) == DomesticCountry {
		policy = domesticShipping
	}
	amount := policy.base.Add(policy.perAdditional.Mul(decimal.NewFromInt(int64(totalQuantity - 1))))
	if cur == "" {
		cur = policy.native
	}
	return Convert(amount, policy.native, cur)
}

// EstimateTax returns the tax estimate for the subtotal. Only the domestic destination is taxed.
func EstimateTax(subtotal decimal.Decimal, destination string) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	if normalizeCountry(destination) != DomesticCountry {
		return decimal.Zero
	}
	return subtotal.Mul(domesticTaxRate)
}
