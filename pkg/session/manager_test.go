package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/ports"
)

func memoryFactory(string) ports.StateStore {
	return memory.NewStore()
}

func TestManager_StoreIsCachedPerSession(t *testing.T) {
	created := 0
	m := NewManager(func(string) ports.StateStore {
		created++
		return memory.NewStore()
	})

	a := m.Store("alpha")
	assert.Same(t, a, m.Store("alpha"))
	assert.NotSame(t, a, m.Store("beta"))
	assert.Equal(t, 2, created)
}

func TestManager_SessionsSorted(t *testing.T) {
	m := NewManager(memoryFactory)
	m.Store("charlie")
	m.Store("alpha")
	m.Store("bravo")

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, m.Sessions())
}

func TestManager_DropEvictsStore(t *testing.T) {
	m := NewManager(memoryFactory)
	first := m.Store("alpha")
	m.Drop("alpha")

	assert.NotSame(t, first, m.Store("alpha"))
}

func TestManager_WithLockSerializesPerSession(t *testing.T) {
	m := NewManager(memoryFactory)

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), "alpha", func(ctx context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "turns for one session must not overlap")
}

func TestManager_LockEntriesAreGarbageCollected(t *testing.T) {
	m := NewManager(memoryFactory)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock(context.Background(), "alpha", func(ctx context.Context) error {
				return nil
			})
		}()
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks, "lock entries must be reclaimed once unused")
}

// fakeLocker records lock traffic to assert the distributed path fires.
type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	f.locked = append(f.locked, key)
	f.mu.Unlock()
	return func(ctx context.Context) error {
		f.mu.Lock()
		f.unlocked = append(f.unlocked, key)
		f.mu.Unlock()
		return nil
	}, nil
}

func TestManager_WithLockUsesDistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	m := NewManager(memoryFactory, WithLocker(locker), WithLockTTL(time.Second))

	err := m.WithLock(context.Background(), "alpha", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha"}, locker.locked)
	assert.Equal(t, []string{"alpha"}, locker.unlocked, "the distributed lock is released after fn")
}
