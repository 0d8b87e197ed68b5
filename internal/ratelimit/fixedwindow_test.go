package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/realizeit/storefront/internal/common"
)

func TestFixedWindowAllow(t *testing.T) {
	fw, err := NewFixedWindow(memory.NewStore(), time.Minute, 2)
	require.NoError(t, err)
	ctx := context.Background()

	allowed, remaining, reset, err := fw.Allow(ctx, "quote:ip:1.2.3.4", 0, 0)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, _, _, err = fw.Allow(ctx, "quote:ip:1.2.3.4", 0, 0)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, remaining, _, err = fw.Allow(ctx, "quote:ip:1.2.3.4", 0, 0)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	allowed, _, _, err = fw.Allow(ctx, "quote:ip:5.6.7.8", 0, 0)
	require.NoError(t, err)
	require.True(t, allowed, "other keys have their own budget")
}

func TestNewFixedWindowValidates(t *testing.T) {
	_, err := NewFixedWindow(nil, time.Minute, 1)
	require.Error(t, err)
	_, err = NewFixedWindow(memory.NewStore(), 0, 1)
	require.Error(t, err)
}

func TestMiddlewareWithFixedWindowReturnsJSON429(t *testing.T) {
	fw, err := NewFixedWindow(memory.NewStore(), time.Minute, 1)
	require.NoError(t, err)
	h := Handler{Limiter: fw, Config: Config{Key: KeyByClientIP("quote"), Window: time.Minute, Max: 1}}
	next := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	rr := httptest.NewRecorder()
	next.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	next.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestKeyByUserOrIP(t *testing.T) {
	key := KeyByUserOrIP("checkout")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.RemoteAddr = "10.1.1.1:999"
	require.Equal(t, "checkout:ip:10.1.1.1", key(req))

	req = req.WithContext(common.WithUserID(req.Context(), "u-1"))
	require.Equal(t, "checkout:user:u-1", key(req))
}
