// Package redisstore persists coordination snapshots in Redis as a single
// JSON value under one key, overwritten on every save.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/recallpoint/lib-marketplace/marketplace/coordination"
)

const defaultKey = "marketplace:coordination:snapshot"

// Store is a Redis-backed coordination.Store.
type Store struct {
	client redis.UniversalClient
	key    string
}

var _ coordination.Store = (*Store)(nil)

// Option mutates store configuration at construction.
type Option func(*Store)

// WithKey overrides the Redis key holding the snapshot.
func WithKey(key string) Option {
	return func(store *Store) {
		if key != "" {
			store.key = key
		}
	}
}

// New creates a store using client. The client's lifecycle belongs to the
// caller.
func New(client redis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}

	store := &Store{client: client, key: defaultKey}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store, nil
}

// Load implements coordination.Store. A missing key yields an empty
// snapshot.
func (store *Store) Load(ctx context.Context) (*coordination.Snapshot, error) {
	payload, err := store.client.Get(ctx, store.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &coordination.Snapshot{}, nil
		}

		return nil, fmt.Errorf("redisstore: get %s: %w", store.key, err)
	}

	var snapshot coordination.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("redisstore: decode %s: %w", store.key, err)
	}

	return &snapshot, nil
}

// Save implements coordination.Store. The snapshot never expires; it is
// the component's durable state, not a cache entry.
func (store *Store) Save(ctx context.Context, snapshot *coordination.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redisstore: encode snapshot: %w", err)
	}

	if err := store.client.Set(ctx, store.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", store.key, err)
	}

	return nil
}
