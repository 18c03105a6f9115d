package budget

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/kailas-cloud/refurnish/internal/db"
)

type fakeKV struct {
	vals    map[string]int64
	raw     map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	incrErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{vals: map[string]int64{}, raw: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if b, ok := f.raw[key]; ok {
		return b, nil
	}
	v, ok := f.vals[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

func (f *fakeKV) IncrByExpire(_ context.Context, key string, val int64, ttl time.Duration) error {
	if f.incrErr != nil {
		return f.incrErr
	}
	f.vals[key] += val
	if _, set := f.ttls[key]; !set {
		f.ttls[key] = ttl
	}
	return nil
}

func newTestStore(kv *fakeKV, now time.Time) *Store {
	s := New(kv, 24*time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func TestStore_IncrByAndGet(t *testing.T) {
	kv := newFakeKV()
	s := newTestStore(kv, time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	ctx := context.Background()
	key := "refurnish:budget:openai:daily:2026-03-01"

	if err := s.IncrBy(ctx, key, 40); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrBy(ctx, key, 2); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("Get = %d, want 42", got)
	}
}

func TestStore_TTLFollowsWindowEnd(t *testing.T) {
	now := time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		key  string
		want time.Duration
	}{
		// day ends at midnight (6h away) plus 24h retention
		{"refurnish:budget:openai:daily:2026-03-31", 30 * time.Hour},
		// month ends April 1st, same instant
		{"refurnish:budget:openai:monthly:2026-03", 30 * time.Hour},
		// already expired windows still get a positive ttl
		{"refurnish:budget:openai:daily:2020-01-01", time.Second},
		{"refurnish:budget:openai:weekly:2026-13", fallbackTTL},
		{"garbage", fallbackTTL},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			kv := newFakeKV()
			if err := newTestStore(kv, now).IncrBy(context.Background(), tt.key, 1); err != nil {
				t.Fatal(err)
			}
			if kv.ttls[tt.key] != tt.want {
				t.Errorf("ttl = %v, want %v", kv.ttls[tt.key], tt.want)
			}
		})
	}
}

func TestStore_DefaultRetention(t *testing.T) {
	if s := New(newFakeKV(), 0); s.retention != DefaultRetention {
		t.Errorf("retention = %v", s.retention)
	}
}

func TestStore_MissingKeyIsZero(t *testing.T) {
	s := New(newFakeKV(), 0)
	got, err := s.Get(context.Background(), "refurnish:budget:x:daily:2026-01-01")
	if err != nil || got != 0 {
		t.Errorf("Get = %d, %v; want 0, nil", got, err)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	kv := newFakeKV()
	kv.getErr = boom
	if _, err := New(kv, 0).Get(ctx, "k"); !errors.Is(err, boom) {
		t.Errorf("Get error = %v, want wrapped boom", err)
	}

	kv = newFakeKV()
	kv.incrErr = boom
	if err := New(kv, 0).IncrBy(ctx, "k", 1); !errors.Is(err, boom) {
		t.Errorf("IncrBy error = %v, want wrapped boom", err)
	}

	kv = newFakeKV()
	kv.raw["k"] = []byte("not-a-number")
	if _, err := New(kv, 0).Get(ctx, "k"); err == nil {
		t.Error("expected parse error")
	}
}
