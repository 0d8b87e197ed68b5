package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/realizeit/storefront/internal/common"
)

const testSecret = "test-secret-value"

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{Secret: testSecret, Issuer: "realizeit-auth", Audience: "storefront", ClockSkew: time.Second})
	require.NoError(t, err)
	return v
}

func signToken(t *testing.T, secret string, build func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()
	now := time.Now()
	b := jwt.NewBuilder().
		Issuer("realizeit-auth").
		Audience([]string{"storefront"}).
		Subject("user-1").
		IssuedAt(now).
		Expiration(now.Add(time.Minute))
	if build != nil {
		b = build(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{Secret: "  "})
	require.Error(t, err)
}

func TestVerifierParsesSubjectAndEmail(t *testing.T) {
	v := newTestVerifier(t)
	token := signToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
		return b.Claim("email", " shopper@example.com ")
	})

	p, err := v.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", p.UserID)
	require.Equal(t, "shopper@example.com", p.Email)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	v := newTestVerifier(t)
	token := signToken(t, "another-secret", nil)

	_, err := v.Parse(token)
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	v := newTestVerifier(t)
	token := signToken(t, testSecret, nil)
	v.WithNow(func() time.Time { return time.Now().Add(time.Hour) })

	_, err := v.Parse(token)
	require.Error(t, err)
}

func TestVerifierRejectsNoneAlgorithm(t *testing.T) {
	v := newTestVerifier(t)
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(`{"sub":"user-1","iss":"realizeit-auth","aud":"storefront"}`))

	_, err := v.Parse(header + "." + payload + ".")
	require.Error(t, err)
}

func TestAuthenticateAttachesPrincipal(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	token := signToken(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
		return b.Claim("email", "shopper@example.com")
	})

	var gotID, gotEmail string
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = common.UserID(r.Context())
		gotEmail = common.UserEmail(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "user-1", gotID)
	require.Equal(t, "shopper@example.com", gotEmail)
}

func TestAuthenticateAllowsGuests(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	called := false
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := common.UserID(r.Context())
		require.False(t, ok)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "UNAUTHORIZED"))
}

func TestRequireAuthRejectsGuests(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
