package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/aretw0/stanza/pkg/adapters/redis"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestStore_Contract(t *testing.T) {
	_, client := newTestClient(t)
	ports.RunStateStoreContract(t, redisadapter.NewFromClient(client, "contract"))
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	alpha := redisadapter.NewFromClient(client, "alpha")
	beta := redisadapter.NewFromClient(client, "beta")

	require.NoError(t, alpha.Put(ctx, "search_web", &domain.StateEntry{Result: "a"}))
	require.NoError(t, beta.Put(ctx, "search_web", &domain.StateEntry{Result: "b"}))

	got, err := alpha.Get(ctx, "search_web")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Result)

	keys, err := beta.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"search_web"}, keys)
}

func TestStore_TTLExpiresEntries(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)

	store := redisadapter.NewFromClient(client, "ttl", redisadapter.WithTTL(time.Minute))
	require.NoError(t, store.Put(ctx, "transient", &domain.StateEntry{Result: "x"}))

	_, err := store.Get(ctx, "transient")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "transient")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	// The entry key expired with the index; Snapshot skips it either way.
	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestStore_SnapshotSkipsExpiredIndexEntries(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)

	store := redisadapter.NewFromClient(client, "skew")
	require.NoError(t, store.Put(ctx, "keep", &domain.StateEntry{Result: "k"}))
	require.NoError(t, store.Put(ctx, "drop", &domain.StateEntry{Result: "d"}))

	// Simulate an entry expiring while its index membership survives.
	mr.Del(redisadapter.DefaultPrefix + "skew:drop")

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "k", snap["keep"].Result)
}

func TestSessions_ListsSessionsWithState(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	require.NoError(t, redisadapter.NewFromClient(client, "one").
		Put(ctx, "k", &domain.StateEntry{Result: 1}))
	require.NoError(t, redisadapter.NewFromClient(client, "two").
		Put(ctx, "k", &domain.StateEntry{Result: 2}))

	sessions, err := redisadapter.Sessions(ctx, client, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, sessions)
}
