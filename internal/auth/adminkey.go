package auth

import (
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/realizeit/storefront/internal/common"
)

// AdminKeyHeader carries the merchant dashboard API key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards merchant endpoints with a shared key stored only as an argon2id hash.
type AdminKey struct {
	Hash string
}

// Require rejects requests whose admin key does not match the configured hash.
func (a AdminKey) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(a.Hash) == "" {
			common.JSONError(w, http.StatusServiceUnavailable, "ADMIN_DISABLED", "admin access is not configured", nil)
			return
		}
		key := strings.TrimSpace(r.Header.Get(AdminKeyHeader))
		if key == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required", nil)
			return
		}
		ok, err := argon2id.ComparePasswordAndHash(key, a.Hash)
		if err != nil || !ok {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "invalid admin key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashAdminKey produces the value stored in ADMIN_API_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	return argon2id.CreateHash(key, argon2id.DefaultParams)
}
