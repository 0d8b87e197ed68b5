package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow adapts a ulule limiter to the Allower interface. The rate is fixed at
// construction, so the window and max passed to Allow are ignored.
type FixedWindow struct {
	L *limiter.Limiter
}

// NewFixedWindow builds a fixed-window limiter over the given store.
func NewFixedWindow(store limiter.Store, window time.Duration, max int) (*FixedWindow, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store not configured")
	}
	if window <= 0 || max <= 0 {
		return nil, errors.New("ratelimit: window and max must be positive")
	}
	return &FixedWindow{L: limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})}, nil
}

// NewRedisFixedWindow builds a fixed-window limiter sharing counters through Redis.
func NewRedisFixedWindow(client *redis.Client, prefix string, window time.Duration, max int) (*FixedWindow, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return NewFixedWindow(store, window, max)
}

// Allow consumes one unit for key.
func (f *FixedWindow) Allow(ctx context.Context, key string, _ time.Duration, _ int) (bool, int, time.Time, error) {
	if f == nil || f.L == nil {
		return true, 0, time.Now(), nil
	}
	lctx, err := f.L.Get(ctx, key)
	if err != nil {
		return false, 0, time.Now(), err
	}
	return !lctx.Reached, int(lctx.Remaining), time.Unix(lctx.Reset, 0), nil
}
