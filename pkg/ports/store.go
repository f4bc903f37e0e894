package ports

import (
	"context"

	"github.com/aretw0/stanza/pkg/domain"
)

// StateStore is the session-scoped shared state: a mapping from key
// (usually a capability name) to the latest StateEntry for that key.
// Writes overwrite, deletes remove the key entirely.
//
// A store instance belongs to exactly one session. Implementations must
// be safe for concurrent use, but the engine itself runs one script at
// a time per session.
type StateStore interface {
	// Put commits the entry under key, overwriting any previous entry.
	Put(ctx context.Context, key string, entry *domain.StateEntry) error

	// Get retrieves the latest entry for key.
	// Returns domain.ErrKeyNotFound if the key is absent.
	Get(ctx context.Context, key string) (*domain.StateEntry, error)

	// Delete removes the key. The bool reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Keys lists the keys currently present.
	Keys(ctx context.Context) ([]string, error)

	// Snapshot returns a copy of the full store contents.
	Snapshot(ctx context.Context) (map[string]*domain.StateEntry, error)
}
