package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecquery/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, s.err(db.OpGet, err)
	}
	return data, nil
}

// GetMulti fetches several keys in one DoMulti round-trip. Missing keys yield
// nil entries. Unlike MGET the keys may live in different cluster slots.
func (s *Store) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Get().Key(key).Build()
	}

	out := make([][]byte, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		data, err := res.AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, s.err(db.OpGet, fmt.Errorf("key %s: %w", keys[i], err))
		}
		out[i] = data
	}
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.err(db.OpSet, err)
	}
	return nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl stores it without one.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(ctx, key, value)
	}
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.err(db.OpSet, err)
	}
	return nil
}

// IncrByWithTTL increments a counter and, when ttl is positive, sets its
// expiry unless it already has one (EXPIRE NX), so a bucket expires relative
// to its first write. Both commands go out in one round-trip.
func (s *Store) IncrByWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) error {
	incr := s.b().Incrby().Key(key).Increment(val).Build()
	if ttl <= 0 {
		if err := s.do(ctx, incr).Error(); err != nil {
			return s.err(db.OpIncrBy, err)
		}
		return nil
	}

	expire := s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build()
	res := s.client.DoMulti(ctx, incr, expire)
	if err := res[0].Error(); err != nil {
		return s.err(db.OpIncrBy, err)
	}
	if err := res[1].Error(); err != nil {
		return s.err(db.OpExpire, err)
	}
	return nil
}
