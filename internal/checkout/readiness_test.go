package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/realizeit/storefront/internal/pricing"
)

func validForm() ShippingForm {
	return ShippingForm{
		RecipientName: "Kim Minji",
		Email:         "minji@example.com",
		AddressLine1:  "12 Teheran-ro",
		City:          "Seoul",
		PostalCode:    "06236",
		Country:       "KR",
		Consent:       true,
	}
}

func validItems() []pricing.LineItem {
	return []pricing.LineItem{{ID: "mug", BaseCost: decimal.RequireFromString("10.00"), Quantity: 2, Currency: pricing.USD}}
}

func rules(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func TestValidateReadinessReady(t *testing.T) {
	vs := ValidateReadiness(validItems(), validForm(), decimal.RequireFromString("29.86"))
	require.NotNil(t, vs)
	require.Empty(t, vs)
}

func TestValidateReadinessAccumulatesEveryFailure(t *testing.T) {
	vs := ValidateReadiness(nil, ShippingForm{}, decimal.Zero)
	require.Equal(t, []string{
		"recipient_name", "email", "address_line1", "city", "postal_code",
		"country", "consent", "cart_empty", "total_positive",
	}, rules(vs))
	require.Len(t, Messages(vs), len(vs))
}

func TestValidateReadinessConsentOnly(t *testing.T) {
	form := validForm()
	form.Consent = false
	b := pricing.ComputeBreakdown(validItems(), form.Country)

	vs := ValidateReadiness(validItems(), form, b.Total)
	require.Len(t, vs, 1)
	require.Equal(t, "consent", vs[0].Rule)
	require.Contains(t, Messages(vs)[0], "consent")
}

func TestValidateReadinessFieldRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ShippingForm)
		rule   string
	}{
		{"short name", func(f *ShippingForm) { f.RecipientName = "K" }, "recipient_name"},
		{"blank name", func(f *ShippingForm) { f.RecipientName = "   " }, "recipient_name"},
		{"email without tld", func(f *ShippingForm) { f.Email = "a@b" }, "email"},
		{"email with space", func(f *ShippingForm) { f.Email = "a b@c.io" }, "email"},
		{"short address", func(f *ShippingForm) { f.AddressLine1 = "1 A" }, "address_line1"},
		{"no city", func(f *ShippingForm) { f.City = "" }, "city"},
		{"no postal code", func(f *ShippingForm) { f.PostalCode = " " }, "postal_code"},
		{"no country", func(f *ShippingForm) { f.Country = "" }, "country"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(&form)
			vs := ValidateReadiness(validItems(), form, decimal.NewFromInt(1))
			require.Equal(t, []string{tc.rule}, rules(vs))
		})
	}
}

func TestValidateReadinessCountsRunes(t *testing.T) {
	form := validForm()
	form.RecipientName = "김민"
	form.AddressLine1 = "서울시강"
	require.Empty(t, ValidateReadiness(validItems(), form, decimal.NewFromInt(1)))
}

func TestValidateReadinessZeroTotal(t *testing.T) {
	items := []pricing.LineItem{{ID: "free", BaseCost: decimal.Zero, Quantity: 1, Currency: pricing.USD}}
	vs := ValidateReadiness(items, validForm(), decimal.Zero)
	require.Equal(t, []string{"total_positive"}, rules(vs))
}

func TestShippingFormNormalizeAndDefaultEmail(t *testing.T) {
	form := ShippingForm{RecipientName: "  Lee ", Country: " kr "}.WithDefaultEmail(" lee@example.com ").Normalize()
	require.Equal(t, "Lee", form.RecipientName)
	require.Equal(t, "KR", form.Country)
	require.Equal(t, "lee@example.com", form.Email)

	kept := ShippingForm{Email: "own@example.com"}.WithDefaultEmail("account@example.com")
	require.Equal(t, "own@example.com", kept.Email)
}
