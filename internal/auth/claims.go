package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	claimEmail    = "email"
	claimTokenUse = "token_use"
	accessToken   = "access"
)

// ClaimsPolicy decides whether a signature-verified session token may act on the
// storefront and extracts the shopper it names.
type ClaimsPolicy struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	// MaxLifetime rejects tokens whose exp is further than this from iat. Zero disables it.
	MaxLifetime time.Duration
}

// Principal validates the registered claims against now and returns the shopper. Tokens
// must carry sub and exp. A token_use claim, when present, must be "access" so refresh
// tokens cannot be replayed as bearer credentials.
func (p ClaimsPolicy) Principal(tok jwt.Token, now time.Time) (Principal, error) {
	if tok == nil {
		return Principal{}, errors.New("auth: token is nil")
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithRequiredClaim(jwt.SubjectKey),
	}
	if p.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(p.ClockSkew))
	}
	if p.Issuer != "" {
		options = append(options, jwt.WithIssuer(p.Issuer))
	}
	if p.Audience != "" {
		options = append(options, jwt.WithAudience(p.Audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return Principal{}, err
	}

	if p.MaxLifetime > 0 && !tok.IssuedAt().IsZero() {
		if lifetime := tok.Expiration().Sub(tok.IssuedAt()); lifetime > p.MaxLifetime {
			return Principal{}, fmt.Errorf("auth: token lifetime %s exceeds %s", lifetime, p.MaxLifetime)
		}
	}
	if use, ok := stringClaim(tok, claimTokenUse); ok && use != accessToken {
		return Principal{}, fmt.Errorf("auth: token_use %q is not accepted", use)
	}

	subject := strings.TrimSpace(tok.Subject())
	if subject == "" {
		return Principal{}, errors.New("auth: token missing subject")
	}
	principal := Principal{UserID: subject}
	if email, ok := stringClaim(tok, claimEmail); ok {
		principal.Email = strings.ToLower(email)
	}
	return principal, nil
}

func stringClaim(tok jwt.Token, name string) (string, bool) {
	raw, ok := tok.Get(name)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
