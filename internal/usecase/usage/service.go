package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
	"github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

// Service records and reports per-collection hardware usage.
type Service struct {
	store Store
	now   func() time.Time
}

// New creates a Service. store can be nil (metrics only, reports are empty).
func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Record flushes the usage accumulated by one request. Persistence failures
// are logged and do not fail the request.
func (s *Service) Record(ctx context.Context, collection string, hw *hardware.Acc) {
	u := hw.Usage()
	if u.IsZero() {
		return
	}
	metrics.AddHardwareUsage(collection, u)
	if s.store == nil {
		return
	}
	if err := s.store.Add(ctx, collection, u, s.now()); err != nil {
		logger.FromContext(ctx).Warn("failed to persist hardware usage",
			zap.String("collection", collection), zap.Error(err))
	}
}

// Report builds the usage report of a collection for the given period.
func (s *Service) Report(
	ctx context.Context, acc access.Access, collection string, period domusage.Period,
) (domusage.Report, error) {
	if err := acc.CheckCollection(collection, access.Read); err != nil {
		return domusage.Report{}, err
	}

	now := s.now()
	var start, end int64
	if period != domusage.PeriodTotal {
		from, to := period.Bounds(now)
		start, end = from.UnixMilli(), to.UnixMilli()
	}

	var u hardware.Usage
	if s.store != nil {
		var err error
		if u, err = s.store.Load(ctx, collection, period, now); err != nil {
			return domusage.Report{}, fmt.Errorf("load usage of %s: %w", collection, err)
		}
	}
	return domusage.NewReport(period, start, end, collection, u), nil
}
