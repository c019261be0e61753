// Package inference guards the inference provider used to embed document
// query inputs: it enforces daily and monthly token budgets and logs every call.
package inference

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

// Action is what happens to a call made after the budget is spent.
type Action string

const (
	// ActionWarn logs and lets the call through.
	ActionWarn Action = "warn"
	// ActionReject fails the call with domain.ErrRateLimited.
	ActionReject Action = "reject"
)

// ParseAction parses a budget action; empty means ActionWarn.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case "":
		return ActionWarn, nil
	case ActionWarn, ActionReject:
		return a, nil
	default:
		return "", fmt.Errorf("unknown budget action %q", s)
	}
}

// store persists the token counters (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	IncrByWithTTL(ctx context.Context, key string, val int64, ttl time.Duration) error
}

// Limits caps the tokens spent per UTC day and month. Zero is unlimited.
type Limits struct {
	Daily   int64
	Monthly int64
	Action  Action
}

const (
	dailyKeyTTL    = 48 * time.Hour
	monthlyKeyTTL  = 62 * 24 * time.Hour
	persistTimeout = 2 * time.Second
)

// Budget tracks inference tokens in memory and writes them behind to a store
// so counters survive restarts. Check never touches the store.
type Budget struct {
	mu       sync.Mutex
	provider string
	limits   Limits
	store    store
	logger   *zap.Logger
	now      func() time.Time

	dayBucket, monthBucket string
	dailyUsed, monthlyUsed int64
}

// NewBudget creates a budget for provider. s can be nil for an in-memory budget.
func NewBudget(provider string, limits Limits, s store, logger *zap.Logger) *Budget {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.Action == "" {
		limits.Action = ActionWarn
	}
	return &Budget{provider: provider, limits: limits, store: s, logger: logger, now: time.Now}
}

// Restore loads the counters of the current day and month from the store.
// Missing counters start at zero; other store errors are returned.
func (b *Budget) Restore(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	if b.store == nil {
		return nil
	}
	keys := []string{b.key("daily", b.dayBucket), b.key("monthly", b.monthBucket)}
	raw, err := b.store.GetMulti(ctx, keys)
	if err != nil {
		return fmt.Errorf("load inference budget: %w", err)
	}
	counters := make([]int64, len(keys))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if counters[i], err = strconv.ParseInt(string(v), 10, 64); err != nil {
			return fmt.Errorf("parse %s: %w", keys[i], err)
		}
	}
	b.dailyUsed, b.monthlyUsed = counters[0], counters[1]
	b.publish()
	return nil
}

// Check reports whether another call may be made.
func (b *Budget) Check() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()

	if !b.exhausted() {
		return nil
	}
	metrics.InferenceBudgetExceededTotal.WithLabelValues(b.provider, string(b.limits.Action)).Inc()
	if b.limits.Action == ActionReject {
		return fmt.Errorf("%w: inference token budget of %s exhausted", domain.ErrRateLimited, b.provider)
	}
	b.logger.Warn("inference token budget exhausted",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.limits.Daily),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.limits.Monthly),
	)
	return nil
}

func (b *Budget) exhausted() bool {
	return (b.limits.Daily > 0 && b.dailyUsed >= b.limits.Daily) ||
		(b.limits.Monthly > 0 && b.monthlyUsed >= b.limits.Monthly)
}

// Record adds spent tokens and persists them. Persistence failures are logged.
func (b *Budget) Record(ctx context.Context, tokens int64) {
	if tokens <= 0 {
		return
	}
	b.mu.Lock()
	b.roll()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	dailyKey, monthlyKey := b.key("daily", b.dayBucket), b.key("monthly", b.monthBucket)
	b.publish()
	b.mu.Unlock()

	if b.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	b.persist(ctx, dailyKey, tokens, dailyKeyTTL)
	b.persist(ctx, monthlyKey, tokens, monthlyKeyTTL)
}

func (b *Budget) persist(ctx context.Context, key string, tokens int64, ttl time.Duration) {
	if err := b.store.IncrByWithTTL(ctx, key, tokens, ttl); err != nil {
		b.logger.Warn("failed to persist inference tokens", zap.String("key", key), zap.Error(err))
	}
}

// Remaining returns the tokens left today and this month; -1 is unlimited.
func (b *Budget) Remaining() (daily, monthly int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return remaining(b.limits.Daily, b.dailyUsed), remaining(b.limits.Monthly, b.monthlyUsed)
}

func remaining(limit, used int64) int64 {
	if limit <= 0 {
		return -1
	}
	return max(0, limit-used)
}

// roll zeroes the counters when the UTC day or month changes. Callers hold mu.
func (b *Budget) roll() {
	now := b.now().UTC()
	if day := now.Format("2006-01-02"); day != b.dayBucket {
		b.dayBucket, b.dailyUsed = day, 0
	}
	if month := now.Format("2006-01"); month != b.monthBucket {
		b.monthBucket, b.monthlyUsed = month, 0
	}
}

func (b *Budget) publish() {
	g := metrics.InferenceBudgetRemaining
	g.WithLabelValues(b.provider, "daily").Set(float64(remaining(b.limits.Daily, b.dailyUsed)))
	g.WithLabelValues(b.provider, "monthly").Set(float64(remaining(b.limits.Monthly, b.monthlyUsed)))
}

func (b *Budget) key(window, bucket string) string {
	return fmt.Sprintf("%sinference_budget:%s:%s:%s", domain.KeyPrefix, b.provider, window, bucket)
}
