package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/aretw0/stanza/pkg/adapters/redis"
)

func TestLocker_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	locker := redisadapter.NewLocker(client, "")

	unlock, err := locker.Lock(ctx, "session-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	// Released lock is immediately acquirable again.
	unlock2, err := locker.Lock(ctx, "session-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_HeldLockBlocksUntilTimeout(t *testing.T) {
	_, client := newTestClient(t)
	locker := redisadapter.NewLocker(client, "")

	unlock, err := locker.Lock(context.Background(), "session-1", time.Minute)
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "session-1", time.Minute)
	assert.ErrorIs(t, err, redisadapter.ErrLockAcquire)
}

func TestLocker_DistinctKeysDoNotContend(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	locker := redisadapter.NewLocker(client, "")

	unlockA, err := locker.Lock(ctx, "session-a", time.Minute)
	require.NoError(t, err)
	defer unlockA(ctx)

	unlockB, err := locker.Lock(ctx, "session-b", time.Minute)
	require.NoError(t, err)
	defer unlockB(ctx)
}

func TestLocker_ExpiredLockIsNotReleasedByFormerHolder(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	locker := redisadapter.NewLocker(client, "")

	unlock, err := locker.Lock(ctx, "session-1", time.Second)
	require.NoError(t, err)

	// Our lock expires and another replica takes it over.
	mr.FastForward(2 * time.Second)
	takeover, err := locker.Lock(ctx, "session-1", time.Minute)
	require.NoError(t, err)

	// Our stale unlock must not free the new holder's lock.
	require.NoError(t, unlock(ctx))

	blocked, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "session-1", time.Minute)
	assert.ErrorIs(t, err, redisadapter.ErrLockAcquire)

	require.NoError(t, takeover(ctx))
}
