package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const unknownClient = "unknown"

// ClientIP returns the address rate limits are keyed on. chi's RealIP middleware runs
// first and folds X-Forwarded-For and X-Real-IP into RemoteAddr, so forwarding headers
// are not consulted again here. IPv6 callers are grouped by their /64 prefix.
func ClientIP(r *http.Request) string {
	if r == nil {
		return unknownClient
	}
	raw := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	addr, err := netip.ParseAddr(strings.Trim(raw, "[]"))
	if err != nil {
		if raw == "" {
			return unknownClient
		}
		return raw
	}
	addr = addr.Unmap()
	if addr.Is6() {
		prefix, err := addr.Prefix(64)
		if err == nil {
			return prefix.String()
		}
	}
	return addr.String()
}
