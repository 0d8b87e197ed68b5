package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}, mr
}

func send(h http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIdemReplaysStoredResponse(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"reference": "cs_1"}})
	}))

	first := send(handler, "/api/v1/checkout", "abc", `{"cartId":"c1"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := send(handler, "/api/v1/checkout", "abc", `{"cartId":"c1"}`)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), second.Body.String())

	require.Equal(t, http.StatusCreated, send(handler, "/api/v1/carts/1/items", "abc", `{"cartId":"c1"}`).Code)
	require.Equal(t, http.StatusCreated, send(handler, "/api/v1/checkout", "", `{"cartId":"c1"}`).Code)
	require.Equal(t, 3, calls)
}

func TestIdemRejectsDifferentBody(t *testing.T) {
	idem, _ := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	require.Equal(t, http.StatusCreated, send(handler, "/api/v1/checkout", "k1", `{"cartId":"c1"}`).Code)
	rr := send(handler, "/api/v1/checkout", "k1", `{"cartId":"c2"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdemInFlightConflict(t *testing.T) {
	idem, mr := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	key := idemKey(req, "busy")
	require.NoError(t, mr.Set(key, `{"state":"pending","fingerprint":"`+sha256Hex(`{}`)+`"}`))

	rr := send(handler, "/api/v1/checkout", "busy", `{}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "IDEMPOTENT_REPLAY")
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	require.Equal(t, http.StatusServiceUnavailable, send(handler, "/api/v1/checkout", "retry", `{}`).Code)
	require.Equal(t, http.StatusCreated, send(handler, "/api/v1/checkout", "retry", `{}`).Code)
	require.Equal(t, 2, calls)
}

func TestIdemScopesKeyByUser(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for _, user := range []string{"u1", "u2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyHeader, "same")
		req = req.WithContext(WithUserID(req.Context(), user))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	require.Equal(t, 2, calls)
}
