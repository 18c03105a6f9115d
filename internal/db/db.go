// Package db defines the key-value store contract shared by the answer cache
// and the budget counters.
package db

import (
	"context"
	"time"
)

// Store is the database facade used by main. Consumers depend on the narrow
// sub-interfaces below.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the key-value operations the service needs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// IncrByExpire increments a counter and sets its TTL only if it has none.
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) error
}
