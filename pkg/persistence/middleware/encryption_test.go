package middleware_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/persistence/middleware"
	"github.com/aretw0/stanza/pkg/ports"
)

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryption_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: key('a'),
	})
	ports.RunStateStoreContract(t, mw(memory.NewStore()))
}

func TestEncryption_ResultIsOpaqueAtRest(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: key('a'),
	})
	store := mw(inner)

	entry := &domain.StateEntry{
		Result: map[string]any{"ssn": "123-45-6789"},
		Metadata: domain.Metadata{
			Timestamp: time.Now().UTC(),
			TurnID:    "turn-1",
		},
	}
	require.NoError(t, store.Put(ctx, "lookup_customer", entry))

	// The backing store sees only the envelope; metadata stays clear.
	raw, err := inner.Get(ctx, "lookup_customer")
	require.NoError(t, err)
	wrapper, ok := raw.Result.(map[string]any)
	require.True(t, ok, "stored result should be an envelope map")
	assert.NotContains(t, wrapper, "ssn")
	assert.Equal(t, "turn-1", raw.Metadata.TurnID)

	// Reads through the middleware see the plaintext.
	loaded, err := store.Get(ctx, "lookup_customer")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ssn": "123-45-6789"}, loaded.Result)
}

func TestEncryption_KeyRotation(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: key('o'),
	})(inner)
	require.NoError(t, oldStore.Put(ctx, "legacy", &domain.StateEntry{Result: "old data"}))

	// A new active key with the old key as fallback still reads old
	// entries, and writes with the new key.
	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    key('n'),
		FallbackKeys: [][]byte{key('o')},
	})(inner)

	loaded, err := rotated.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "old data", loaded.Result)

	require.NoError(t, rotated.Put(ctx, "fresh", &domain.StateEntry{Result: "new data"}))

	// Without the fallback, the legacy entry is unreadable.
	newOnly := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: key('n'),
	})(inner)
	_, err = newOnly.Get(ctx, "legacy")
	assert.Error(t, err)
	_, err = newOnly.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestEncryption_RejectsUnencryptedEntry(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	require.NoError(t, inner.Put(ctx, "plain", &domain.StateEntry{Result: "never encrypted"}))

	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: key('a'),
	})(inner)

	_, err := store.Get(ctx, "plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "envelope")

	_, err = store.Snapshot(ctx)
	assert.Error(t, err)
}

func TestEncryption_RequiresAES256Key(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey: []byte("short"),
		})
	})
}
