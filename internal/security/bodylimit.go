package security

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/realizeit/storefront/internal/common"
)

// BodyLimit caps request payloads and, with RequireJSON, refuses non-empty write bodies
// that are not declared as JSON. The body is buffered so later layers such as the
// idempotency middleware can read it again.
type BodyLimit struct {
	Max         int64
	RequireJSON bool
}

// Middleware rejects oversized bodies with 413 and non-JSON bodies with 415.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if b.Max > 0 && r.ContentLength > b.Max {
			tooLarge(w)
			return
		}

		reader := io.Reader(r.Body)
		if b.Max > 0 {
			reader = io.LimitReader(r.Body, b.Max+1)
		}
		buf, err := io.ReadAll(reader)
		_ = r.Body.Close()
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}
		if b.Max > 0 && int64(len(buf)) > b.Max {
			tooLarge(w)
			return
		}
		if b.RequireJSON && len(buf) > 0 && hasWriteMethod(r) && !isJSON(r.Header.Get("Content-Type")) {
			common.JSONError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "request body must be application/json", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
}

func hasWriteMethod(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func isJSON(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
