package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStore())
}

func TestStore_PutCopiesEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	entry := &domain.StateEntry{Result: "original"}
	require.NoError(t, store.Put(ctx, "key", entry))

	// Mutating the caller's entry must not change stored state.
	entry.Result = "mutated"

	loaded, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "original", loaded.Result)
}

func TestStore_DeepCopiesNestedResults(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	result := map[string]any{"tags": []any{"draft"}}
	require.NoError(t, store.Put(ctx, "doc", &domain.StateEntry{Result: result}))

	// The caller keeps mutating its own map after the commit.
	result["tags"] = append(result["tags"].([]any), "stale")
	result["title"] = "overwritten"

	loaded, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"tags": []any{"draft"}}, loaded.Result)

	// And mutating what Get returned must not leak back either.
	loaded.Result.(map[string]any)["tags"] = nil

	again, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"tags": []any{"draft"}}, again.Result)
}

func TestStore_RejectsUnserializableResult(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	err := store.Put(ctx, "bad", &domain.StateEntry{Result: make(chan int)})
	assert.ErrorContains(t, err, "not JSON-serializable")
}

func TestStore_SnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Put(ctx, "key", &domain.StateEntry{Result: "v1"}))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	snap["key"].Result = "tampered"

	loaded, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "v1", loaded.Result)
}
