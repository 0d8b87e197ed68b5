package common

import (
	"context"
	"strings"
)

type shopperKey struct{}

// Shopper is the signed-in customer attached to a request. Guests have no Shopper.
type Shopper struct {
	ID    string
	Email string
}

// WithShopper stores the signed-in shopper on the context.
func WithShopper(ctx context.Context, s Shopper) context.Context {
	s.ID = strings.TrimSpace(s.ID)
	s.Email = strings.TrimSpace(s.Email)
	return context.WithValue(ctx, shopperKey{}, s)
}

// ShopperFrom returns the shopper and whether the request is signed in.
func ShopperFrom(ctx context.Context) (Shopper, bool) {
	if ctx == nil {
		return Shopper{}, false
	}
	s, ok := ctx.Value(shopperKey{}).(Shopper)
	return s, ok && s.ID != ""
}

// WithUserID sets the shopper id, keeping any email already present.
func WithUserID(ctx context.Context, id string) context.Context {
	s, _ := ShopperFrom(ctx)
	s.ID = id
	return WithShopper(ctx, s)
}

// UserID returns the shopper id for signed-in requests.
func UserID(ctx context.Context) (string, bool) {
	s, ok := ShopperFrom(ctx)
	return s.ID, ok
}

// WithUserEmail sets the shopper email claim, keeping the id.
func WithUserEmail(ctx context.Context, email string) context.Context {
	s, _ := ShopperFrom(ctx)
	s.Email = email
	return WithShopper(ctx, s)
}

// UserEmail returns the signed-in shopper's email, or "" for guests.
func UserEmail(ctx context.Context) string {
	s, _ := ShopperFrom(ctx)
	return s.Email
}
