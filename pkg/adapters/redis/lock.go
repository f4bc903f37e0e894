package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stanza/pkg/ports"
)

// ErrLockAcquire is returned when the lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// Locker implements ports.DistributedLocker using Redis SET NX PX.
// It serializes turn execution for a session across replicas.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker creates a Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// Lock polls until the lock for key is acquired or the context ends.
// The returned UnlockFunc releases the lock only if we still hold it
// (value check via Lua), so an expired lock taken over by another
// replica is never released by us.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	val := fmt.Sprintf("%d", time.Now().UnixNano())

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		success, err := l.client.SetNX(ctx, lockKey, val, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if success {
			return func(ctx context.Context) error {
				script := `
					if redis.call("get", KEYS[1]) == ARGV[1] then
						return redis.call("del", KEYS[1])
					else
						return 0
					end
				`
				return l.client.Eval(ctx, script, []string{lockKey}, val).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockAcquire, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Sessions lists the session IDs that currently have state in Redis,
// by scanning index keys under prefix.
func Sessions(ctx context.Context, client *backend.Client, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	var (
		sessions []string
		cursor   uint64
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*:index", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan sessions: %w", err)
		}
		for _, k := range keys {
			id := k[len(prefix) : len(k)-len(":index")]
			sessions = append(sessions, id)
		}
		cursor = next
		if cursor == 0 {
			return sessions, nil
		}
	}
}
