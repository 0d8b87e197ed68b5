package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, req *http.Request) http.Header {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Result().Header
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestHeadersSetsSecurityHeaders(t *testing.T) {
	h := Headers{HSTSMaxAge: 365 * 24 * time.Hour, HSTSIncludeSubdomains: true}.Middleware(ok)

	req := httptest.NewRequest(http.MethodGet, "https://shop.example.com/api/v1/quote", nil)
	req.TLS = &tls.ConnectionState{}
	headers := serve(h, req)

	require.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	require.Equal(t, "same-site", headers.Get("Cross-Origin-Resource-Policy"))
	require.Equal(t, "max-age=31536000; includeSubDomains", headers.Get("Strict-Transport-Security"))
	require.Empty(t, headers.Get("Cache-Control"))
}

func TestHeadersHSTSOnlyOverHTTPS(t *testing.T) {
	cfg := Headers{HSTSMaxAge: time.Hour}

	plain := serve(cfg.Middleware(ok), httptest.NewRequest(http.MethodGet, "http://shop.example.com/", nil))
	require.Empty(t, plain.Get("Strict-Transport-Security"))

	forwarded := httptest.NewRequest(http.MethodGet, "http://shop.example.com/", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	require.Empty(t, serve(cfg.Middleware(ok), forwarded).Get("Strict-Transport-Security"), "forwarded proto untrusted by default")

	cfg.TrustForwardedProto = true
	require.Equal(t, "max-age=3600", serve(cfg.Middleware(ok), forwarded).Get("Strict-Transport-Security"))

	disabled := httptest.NewRequest(http.MethodGet, "https://shop.example.com/", nil)
	disabled.TLS = &tls.ConnectionState{}
	require.Empty(t, serve(Headers{}.Middleware(ok), disabled).Get("Strict-Transport-Security"))
}

func TestNoStore(t *testing.T) {
	headers := serve(NoStore(ok), httptest.NewRequest(http.MethodGet, "/api/v1/carts/c1", nil))
	require.Equal(t, "no-store", headers.Get("Cache-Control"))
	require.Equal(t, "no-cache", headers.Get("Pragma"))
}
