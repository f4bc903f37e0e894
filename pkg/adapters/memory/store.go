// Package memory provides the in-memory StateStore used for ephemeral
// sessions and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/stanza/pkg/domain"
)

// Store implements ports.StateStore in memory. Safe for concurrent use.
//
// Results round-trip through JSON on every Put, so stored state is fully
// detached from caller values and comes back with JSON types (float64
// numbers, []any, map[string]any) just as it would from a persistent
// backend.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.StateEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.StateEntry),
	}
}

// Put commits the entry, overwriting any previous entry for key.
func (s *Store) Put(ctx context.Context, key string, entry *domain.StateEntry) error {
	copied, err := cloneEntry(entry)
	if err != nil {
		return fmt.Errorf("failed to store %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Get retrieves the latest entry for key.
func (s *Store) Get(ctx context.Context, key string) (*domain.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return cloneEntry(entry)
}

// Delete removes the key entirely. No tombstones.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.data[key]
	delete(s.data, key)
	return existed, nil
}

// Keys lists the present keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Snapshot returns a copy of the full contents.
func (s *Store) Snapshot(ctx context.Context) (map[string]*domain.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]*domain.StateEntry, len(s.data))
	for k, v := range s.data {
		entry, err := cloneEntry(v)
		if err != nil {
			return nil, err
		}
		snap[k] = entry
	}
	return snap, nil
}

// cloneEntry detaches an entry from its source. Metadata is a value
// struct, so a shallow copy suffices; the result may hold maps or
// slices and goes through JSON.
func cloneEntry(entry *domain.StateEntry) (*domain.StateEntry, error) {
	copied := *entry
	if entry.Result == nil {
		return &copied, nil
	}

	raw, err := json.Marshal(entry.Result)
	if err != nil {
		return nil, fmt.Errorf("result is not JSON-serializable: %w", err)
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	copied.Result = result
	return &copied, nil
}
