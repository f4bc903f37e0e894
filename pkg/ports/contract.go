package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a
// StateStore implementation adheres to the interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()

	entry := func(result any) *domain.StateEntry {
		return &domain.StateEntry{
			Result: result,
			Metadata: domain.Metadata{
				Timestamp: time.Now().UTC(),
				TurnID:    "turn-1",
			},
		}
	}

	t.Run("Put and Get", func(t *testing.T) {
		err := store.Put(ctx, "search_web", entry(map[string]any{"hits": "42"}))
		require.NoError(t, err, "Put should not return error")

		loaded, err := store.Get(ctx, "search_web")
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, "turn-1", loaded.Metadata.TurnID)
		// JSON-backed stores decode results into generic maps; only the
		// content is contractual, not the Go type.
		assert.NotNil(t, loaded.Result)
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "counter", entry("first")))
		require.NoError(t, store.Put(ctx, "counter", entry("second")))

		loaded, err := store.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.Result)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "never-written")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "ephemeral", entry("x")))

		existed, err := store.Delete(ctx, "ephemeral")
		require.NoError(t, err, "Delete should not return error")
		assert.True(t, existed, "Delete should report the key existed")

		_, err = store.Get(ctx, "ephemeral")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Delete should return ErrKeyNotFound")

		existed, err = store.Delete(ctx, "ephemeral")
		require.NoError(t, err)
		assert.False(t, existed, "second Delete should report the key absent")
	})

	t.Run("Keys and Snapshot", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "alpha", entry("a")))
		require.NoError(t, store.Put(ctx, "beta", entry("b")))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, "alpha")
		assert.Contains(t, keys, "beta")

		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", snap["alpha"].Result)
		assert.Equal(t, "b", snap["beta"].Result)
	})
}
