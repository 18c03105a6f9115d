package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/refurnish/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, db.ErrKeyNotFound
	}
	return data, wrap(db.OpGet, err)
}

// SetWithTTL stores a value with an expiration. A non-positive ttl stores without one.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	}
	return wrap(db.OpSet, s.client.Do(ctx, cmd).Error())
}

// IncrByExpire sends INCRBY and EXPIRE NX in one pipeline: the counter's
// expiry is set on first write and never pushed forward.
func (s *Store) IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) error {
	b := s.client.B()
	res := s.client.DoMulti(ctx,
		b.Incrby().Key(key).Increment(val).Build(),
		b.Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build(),
	)
	if err := res[0].Error(); err != nil {
		return wrap(db.OpIncrBy, err)
	}
	return wrap(db.OpExpire, res[1].Error())
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &db.Error{Op: op, Err: err}
}
