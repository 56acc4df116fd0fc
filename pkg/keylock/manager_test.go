package keylock_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/hashfsm/pkg/keylock"
	"github.com/aretw0/hashfsm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLocker counts lock calls and can be told to fail.
type recordingLocker struct {
	mu         sync.Mutex
	locks      int
	unlocks    int
	ttl        time.Duration
	failLock   error
	failUnlock error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failLock != nil {
		return nil, l.failLock
	}
	l.locks++
	l.ttl = ttl
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return l.failUnlock
	}, nil
}

func TestManager_Serializes(t *testing.T) {
	mgr := keylock.NewManager()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "job:1", func(ctx context.Context) error {
				// Unprotected read-modify-write would lose updates.
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := keylock.NewManager()
	ctx := context.Background()

	for i := range 10000 {
		key := fmt.Sprintf("job:%d", i)
		_ = mgr.WithLock(ctx, key, func(context.Context) error { return nil })
	}

	assert.Equal(t, 0, mgr.Active(), "lock entries must not leak")
}

func TestManager_PropagatesError(t *testing.T) {
	mgr := keylock.NewManager()
	boom := errors.New("boom")

	err := mgr.WithLock(context.Background(), "job:1", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, mgr.Active())
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	mgr := keylock.NewManager(keylock.WithLocker(locker), keylock.WithTTL(5*time.Second))

	require.NoError(t, mgr.WithLock(context.Background(), "job:1", func(context.Context) error { return nil }))

	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &recordingLocker{failLock: errors.New("lock timeout")}
	mgr := keylock.NewManager(keylock.WithLocker(locker))

	called := false
	err := mgr.WithLock(context.Background(), "job:1", func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called, "fn must not run without the distributed lock")
	assert.Equal(t, 0, mgr.Active())
}

func TestManager_UnlockFailureIsNotFatal(t *testing.T) {
	locker := &recordingLocker{failUnlock: errors.New("token mismatch")}
	mgr := keylock.NewManager(keylock.WithLocker(locker))

	err := mgr.WithLock(context.Background(), "job:1", func(context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, locker.unlocks)
}

func TestManager_DefaultTTL(t *testing.T) {
	locker := &recordingLocker{}
	mgr := keylock.NewManager(keylock.WithLocker(locker), keylock.WithTTL(0))

	require.NoError(t, mgr.WithLock(context.Background(), "job:1", func(context.Context) error { return nil }))
	assert.Equal(t, keylock.DefaultTTL, locker.ttl)
}
