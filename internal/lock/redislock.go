package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by TryWithLock when another holder owns the key.
var ErrLocked = errors.New("lock: key is held")

// ErrLockLost is the cancellation cause seen by fn when the lock expired or was taken
// over while fn was still running.
var ErrLockLost = errors.New("lock: ownership lost")

var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker provides a Redis-backed distributed lock. While fn runs the lock TTL is
// refreshed every third of the TTL, so a slow hosted-checkout call does not let a
// duplicate submission in.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

func (l Locker) validate(fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl < 30*time.Millisecond {
		return 30 * time.Second
	}
	return ttl
}

// WithLock waits until the key is free, then runs fn while holding it. The lock is
// released even if fn fails. Waiting ends with ctx.Err() when ctx is cancelled.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	ttl = normalizeTTL(ttl)
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	token := uuid.NewString()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return l.hold(ctx, key, token, ttl, fn)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryWithLock runs fn only if the key is free right now. A held key yields ErrLocked
// without waiting, which is how duplicate checkout submissions are rejected.
func (l Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	ttl = normalizeTTL(ttl)
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	return l.hold(ctx, key, token, ttl, fn)
}

func (l Locker) hold(ctx context.Context, key, token string, ttl time.Duration, fn func(context.Context) error) error {
	fnCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(fnCtx, key, token, ttl, stop, cancel)
	}()
	defer func() {
		close(stop)
		<-done
		cancel(nil)
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.R, []string{key}, token).Err()
	}()
	return fn(fnCtx)
}

func (l Locker) keepAlive(ctx context.Context, key, token string, ttl time.Duration, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, l.R, []string{key}, token, ttl.Milliseconds()).Int64()
			if err == nil && n == 0 {
				cancel(ErrLockLost)
				return
			}
		}
	}
}
