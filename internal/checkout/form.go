package checkout

import "strings"

// ShippingForm is the recipient and consent information collected before payment.
// The validate tags only bound field sizes; presence rules live in ValidateReadiness.
type ShippingForm struct {
	RecipientName string `json:"recipientName" validate:"max=120"`
	Email         string `json:"email" validate:"max=254"`
	Phone         string `json:"phone" validate:"max=32"`
	AddressLine1  string `json:"addressLine1" validate:"max=200"`
	AddressLine2  string `json:"addressLine2" validate:"max=200"`
	City          string `json:"city" validate:"max=100"`
	Region        string `json:"region" validate:"max=100"`
	PostalCode    string `json:"postalCode" validate:"max=20"`
	Country       string `json:"country" validate:"omitempty,len=2,alpha"`
	Consent       bool   `json:"consent"`
}

// Normalize trims every text field and upper-cases the country code.
func (f ShippingForm) Normalize() ShippingForm {
	f.RecipientName = strings.TrimSpace(f.RecipientName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.AddressLine1 = strings.TrimSpace(f.AddressLine1)
	f.AddressLine2 = strings.TrimSpace(f.AddressLine2)
	f.City = strings.TrimSpace(f.City)
	f.Region = strings.TrimSpace(f.Region)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	f.Country = strings.ToUpper(strings.TrimSpace(f.Country))
	return f
}

// WithDefaultEmail fills an empty email with the signed-in user's address.
func (f ShippingForm) WithDefaultEmail(userEmail string) ShippingForm {
	if strings.TrimSpace(f.Email) == "" {
		f.Email = strings.TrimSpace(userEmail)
	}
	return f
}
