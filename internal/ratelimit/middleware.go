package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/realizeit/storefront/internal/common"
	"github.com/realizeit/storefront/internal/obs"
)

// Allower decides whether the event identified by key fits in the window.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error)
}

// Config describes how to derive a rate limit key and thresholds. Scope labels metrics
// and logs, e.g. "quote" or "checkout".
type Config struct {
	Scope  string
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler. Limiter errors
// fail open: the request proceeds and the error goes to OnError, or to the request
// logger when OnError is nil.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

func (h Handler) scope() string {
	if s := strings.TrimSpace(h.Config.Scope); s != "" {
		return s
	}
	return "default"
}

func (h Handler) record(decision string) {
	if obs.RateLimitDecisionsTotal != nil {
		obs.RateLimitDecisionsTotal.WithLabelValues(h.scope(), decision).Inc()
	}
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil || h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			h.record("error")
			if h.OnError != nil {
				h.OnError(err)
			} else {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("scope", h.scope()).Msg("rate limiter unavailable")
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if allowed {
			h.record("allowed")
			next.ServeHTTP(w, r)
			return
		}

		h.record("limited")
		retryAfter := int(math.Ceil(time.Until(resetAt).Seconds()))
		headers.Set("Retry-After", strconv.Itoa(max(retryAfter, 0)))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please retry later", map[string]any{
			"scope":      h.scope(),
			"retryAfter": max(retryAfter, 0),
		})
	})
}

// KeyByClientIP buckets requests by caller address.
func KeyByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":ip:" + common.ClientIP(r)
	}
}

// KeyByUserOrIP buckets signed-in shoppers by account and everyone else by address.
func KeyByUserOrIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, ok := common.UserID(r.Context()); ok && strings.TrimSpace(id) != "" {
			return scope + ":user:" + strings.TrimSpace(id)
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}
