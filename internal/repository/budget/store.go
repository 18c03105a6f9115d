// Package budget persists vision token counters for vision.BudgetTracker.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/refurnish/internal/db"
)

// DefaultRetention keeps a counter this long after its window closes.
const DefaultRetention = 7 * 24 * time.Hour

// fallbackTTL applies to keys whose window cannot be parsed.
const fallbackTTL = 62 * 24 * time.Hour

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) error
}

// Store implements vision.BudgetStore on the KV store. Keys look like
// refurnish:budget:{provider}:daily:2026-03-31 or ...:monthly:2026-03.
type Store struct {
	store     store
	retention time.Duration
	now       func() time.Time
}

// New creates a budget store. A zero retention falls back to DefaultRetention.
func New(s store, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		store:     s,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IncrBy increments the counter. The key expires retention after its window ends.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrByExpire(ctx, key, val, s.ttlForKey(key)); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	return nil
}

// Get returns the current counter. A missing key reads as 0.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse counter: %w", key, err)
	}
	return val, nil
}

func (s *Store) ttlForKey(key string) time.Duration {
	end, ok := windowEnd(key)
	if !ok {
		return fallbackTTL
	}
	return max(end.Add(s.retention).Sub(s.now()), time.Second)
}

// windowEnd parses the trailing "{window}:{date}" of a key.
func windowEnd(key string) (time.Time, bool) {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	window, date := parts[len(parts)-2], parts[len(parts)-1]
	switch window {
	case "daily":
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return time.Time{}, false
		}
		return t.AddDate(0, 0, 1), true
	case "monthly":
		t, err := time.Parse("2006-01", date)
		if err != nil {
			return time.Time{}, false
		}
		return t.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}
