package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
)

// store is the consumer interface for usage counters (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	IncrByWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) error
}

// Store persists hardware usage counters per collection (INCRBY + EXPIRE NX, GET).
// Every measurement is added to a running total and to the daily and monthly
// buckets it falls in.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a usage store.
// dailyTTL is the TTL for daily buckets (recommended: 48h).
// monthTTL is the TTL for monthly buckets (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// Add increments the counters of a collection by u. Zero counters are skipped.
func (s *Store) Add(ctx context.Context, collection string, u hardware.Usage, now time.Time) error {
	day := domusage.PeriodDay.Bucket(now)
	month := domusage.PeriodMonth.Bucket(now)

	var errs []error
	for _, counter := range hardware.Counters {
		v := u.Get(counter)
		if v <= 0 {
			continue
		}
		errs = append(errs,
			s.incr(ctx, domain.UsageKey(collection, counter), v, 0),
			s.incr(ctx, domain.UsageBucketKey(collection, day, counter), v, s.dailyTTL),
			s.incr(ctx, domain.UsageBucketKey(collection, month, counter), v, s.monthTTL),
		)
	}
	return errors.Join(errs...)
}

// incr increments the key; buckets expire ttl after their first write.
func (s *Store) incr(ctx context.Context, key string, val int64, ttl time.Duration) error {
	if err := s.store.IncrByWithTTL(ctx, key, val, ttl); err != nil {
		return fmt.Errorf("usage %s: %w", key, err)
	}
	return nil
}

// Load returns the counters of a collection for the period containing now,
// read in one round-trip. Missing counters read as zero.
func (s *Store) Load(ctx context.Context, collection string, period domusage.Period, now time.Time) (hardware.Usage, error) {
	bucket := period.Bucket(now)
	keys := make([]string, len(hardware.Counters))
	for i, counter := range hardware.Counters {
		keys[i] = domain.UsageKey(collection, counter)
		if bucket != "" {
			keys[i] = domain.UsageBucketKey(collection, bucket, counter)
		}
	}

	raw, err := s.store.GetMulti(ctx, keys)
	if err != nil {
		return hardware.Usage{}, fmt.Errorf("usage load %s: %w", collection, err)
	}

	var u hardware.Usage
	for i, counter := range hardware.Counters {
		if raw[i] == nil {
			continue
		}
		v, err := strconv.ParseInt(string(raw[i]), 10, 64)
		if err != nil {
			return hardware.Usage{}, fmt.Errorf("usage %s parse: %w", keys[i], err)
		}
		u.Set(counter, v)
	}
	return u, nil
}
