package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newSliding(t *testing.T) (SlidingWindow, *fakeClock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return SlidingWindow{Client: client, Prefix: "rl:checkout:", Now: clock.Now}, clock
}

func TestSlidingWindowAdmitsUpToMax(t *testing.T) {
	limiter, clock := newSliding(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "checkout:user:u1", window, 2)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, 1-i, remaining)
	}

	clock.Advance(500 * time.Millisecond)
	allowed, remaining, reset, err := limiter.Allow(ctx, "checkout:user:u1", window, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.Equal(t, time.Date(2024, 5, 1, 12, 0, 2, 0, time.UTC), reset.UTC())

	allowed, _, _, err = limiter.Allow(ctx, "checkout:user:u2", window, 2)
	require.NoError(t, err)
	require.True(t, allowed, "keys are independent")
}

func TestSlidingWindowRejectedHitsDoNotExtendLockout(t *testing.T) {
	limiter, clock := newSliding(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "k", window, 2)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	for i := 0; i < 5; i++ {
		clock.Advance(300 * time.Millisecond)
		allowed, _, _, err := limiter.Allow(ctx, "k", window, 2)
		require.NoError(t, err)
		require.False(t, allowed)
	}

	clock.Advance(600 * time.Millisecond)
	allowed, remaining, _, err := limiter.Allow(ctx, "k", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
}

func TestSlidingWindowDisabled(t *testing.T) {
	allowed, remaining, _, err := SlidingWindow{}.Allow(context.Background(), "k", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 3, remaining)
}
