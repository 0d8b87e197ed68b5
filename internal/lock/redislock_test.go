package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/realizeit/storefront/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestWithLockSerializesHolders(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		errs <- locker.WithLock(ctx, "demo", 500*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		errs <- locker.WithLock(ctx, "demo", 500*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	close(releaseFirst)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestTryWithLockRejectsConcurrentHolder(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	inner := locker.TryWithLock(ctx, "checkout:c1", time.Minute, func(ctx context.Context) error {
		return locker.TryWithLock(ctx, "checkout:c1", time.Minute, func(context.Context) error {
			t.Fatal("second holder must not run")
			return nil
		})
	})
	require.ErrorIs(t, inner, lock.ErrLocked)
	require.False(t, mr.Exists("checkout:c1"), "lock released after fn returns")

	ran := false
	require.NoError(t, locker.TryWithLock(ctx, "checkout:c1", time.Minute, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestTryWithLockReleasesOnError(t *testing.T) {
	locker, mr := newLocker(t)
	boom := errors.New("boom")

	err := locker.TryWithLock(context.Background(), "checkout:c2", time.Minute, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("checkout:c2"))
}

func TestLockRefreshedWhileHeld(t *testing.T) {
	locker, mr := newLocker(t)
	refreshed := make(chan struct{})

	err := locker.TryWithLock(context.Background(), "checkout:slow", 150*time.Millisecond, func(ctx context.Context) error {
		mr.SetTTL("checkout:slow", 10*time.Second)
		require.Eventually(t, func() bool {
			return mr.TTL("checkout:slow") <= 150*time.Millisecond
		}, time.Second, 5*time.Millisecond, "watchdog must reset the ttl")
		close(refreshed)
		return nil
	})
	require.NoError(t, err)
	<-refreshed
	require.False(t, mr.Exists("checkout:slow"))
}

func TestLockLostCancelsHolder(t *testing.T) {
	locker, mr := newLocker(t)

	err := locker.TryWithLock(context.Background(), "checkout:lost", 90*time.Millisecond, func(ctx context.Context) error {
		require.NoError(t, mr.Set("checkout:lost", "someone-else"))
		select {
		case <-ctx.Done():
			require.ErrorIs(t, context.Cause(ctx), lock.ErrLockLost)
			return ctx.Err()
		case <-time.After(time.Second):
			return errors.New("holder was not cancelled")
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	got, getErr := mr.Get("checkout:lost")
	require.NoError(t, getErr)
	require.Equal(t, "someone-else", got, "release must not delete a foreign lock")
}
