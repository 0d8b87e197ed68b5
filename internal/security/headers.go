package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// apiHeaders apply to every storefront API response. The API never serves HTML, so the
// content security policy forbids everything.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
}

// Headers sets the API security headers. HSTS is emitted only for HTTPS requests and
// only when HSTSMaxAge is positive; behind a TLS-terminating load balancer set
// TrustForwardedProto so X-Forwarded-Proto counts.
type Headers struct {
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	TrustForwardedProto   bool
}

func (h Headers) hsts() string {
	if h.HSTSMaxAge <= 0 {
		return ""
	}
	value := "max-age=" + strconv.FormatInt(int64(h.HSTSMaxAge/time.Second), 10)
	if h.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

func (h Headers) isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if !h.TrustForwardedProto {
		return false
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}

// Middleware attaches the security headers to each response.
func (h Headers) Middleware(next http.Handler) http.Handler {
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range apiHeaders {
			headers.Set(kv[0], kv[1])
		}
		if hsts != "" && h.isHTTPS(r) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses uncacheable. Carts, quotes and checkout answers are per
// shopper and must not be kept by shared caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}
