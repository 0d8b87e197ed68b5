package checkout

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/realizeit/storefront/internal/pricing"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Violation is a single reason the cart and form cannot be submitted yet.
type Violation struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type rule struct {
	name    string
	field   string
	message string
	ok      func(items []pricing.LineItem, form ShippingForm, total decimal.Decimal) bool
}

// Evaluated in order; every failing rule is reported.
var readinessRules = []rule{
	{
		name: "recipient_name", field: "recipientName",
		message: "Recipient name must be at least 2 characters.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return runeLen(f.RecipientName) >= 2
		},
	},
	{
		name: "email", field: "email",
		message: "A valid email address is required.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return emailPattern.MatchString(strings.TrimSpace(f.Email))
		},
	},
	{
		name: "address_line1", field: "addressLine1",
		message: "Address line 1 must be at least 4 characters.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return runeLen(f.AddressLine1) >= 4
		},
	},
	{
		name: "city", field: "city",
		message: "City is required.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return runeLen(f.City) > 0
		},
	},
	{
		name: "postal_code", field: "postalCode",
		message: "Postal code is required.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return runeLen(f.PostalCode) > 0
		},
	},
	{
		name: "country", field: "country",
		message: "Country is required.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return runeLen(f.Country) > 0
		},
	},
	{
		name: "consent", field: "consent",
		message: "You must consent to the order terms before checkout.",
		ok: func(_ []pricing.LineItem, f ShippingForm, _ decimal.Decimal) bool {
			return f.Consent
		},
	},
	{
		name: "cart_empty", field: "items",
		message: "Your cart is empty.",
		ok: func(items []pricing.LineItem, _ ShippingForm, _ decimal.Decimal) bool {
			return len(items) > 0
		},
	},
	{
		name: "total_positive", field: "total",
		message: "Order total must be greater than zero.",
		ok: func(_ []pricing.LineItem, _ ShippingForm, total decimal.Decimal) bool {
			return total.IsPositive()
		},
	},
}

// ValidateReadiness checks the cart, shipping form and computed total. An empty result
// means the checkout can be submitted.
func ValidateReadiness(items []pricing.LineItem, form ShippingForm, total decimal.Decimal) []Violation {
	violations := make([]Violation, 0)
	for _, r := range readinessRules {
		if r.ok(items, form, total) {
			continue
		}
		violations = append(violations, Violation{Rule: r.name, Field: r.field, Message: r.message})
	}
	return violations
}

// Messages flattens violations into their display messages.
func Messages(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Message)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
