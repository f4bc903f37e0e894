// Package redis provides a Redis-backed StateStore and distributed
// locker, enabling durable session state and multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stanza/pkg/domain"
)

// DefaultPrefix namespaces all stanza keys in Redis.
const DefaultPrefix = "stanza:state:"

// Store implements ports.StateStore on Redis. One Store instance serves
// one session: the session ID is baked into the key prefix.
type Store struct {
	client  *backend.Client
	session string
	prefix  string
	ttl     time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithTTL sets an expiration on state entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix (default DefaultPrefix).
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store for the given session.
func New(address, password string, db int, sessionID string, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, sessionID, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, sessionID string, opts ...Option) *Store {
	s := &Store{
		client:  client,
		session: sessionID,
		prefix:  DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(key string) string {
	return s.prefix + s.session + ":" + key
}

// indexKey holds the set of keys present for this session, so Keys and
// Snapshot avoid SCAN.
func (s *Store) indexKey() string {
	return s.prefix + s.session + ":index"
}

// Put commits the entry, overwriting any previous value for key.
func (s *Store) Put(ctx context.Context, key string, entry *domain.StateEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal state entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), key)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the latest entry for key.
func (s *Store) Get(ctx context.Context, key string) (*domain.StateEntry, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var entry domain.StateEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state entry: %w", err)
	}
	return &entry, nil
}

// Delete removes the key. The bool reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	pipe := s.client.Pipeline()
	del := pipe.Del(ctx, s.key(key))
	pipe.SRem(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete from redis: %w", err)
	}
	return del.Val() > 0, nil
}

// Keys lists the keys currently present for this session.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Snapshot returns a copy of the full session state.
func (s *Store) Snapshot(ctx context.Context) (map[string]*domain.StateEntry, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]*domain.StateEntry, len(keys))
	for _, key := range keys {
		entry, err := s.Get(ctx, key)
		if err != nil {
			if err == domain.ErrKeyNotFound {
				// Entry expired between the index read and the get.
				continue
			}
			return nil, err
		}
		snap[key] = entry
	}
	return snap, nil
}
