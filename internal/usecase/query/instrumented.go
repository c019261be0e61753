package query

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

// InstrumentedStore wraps a Store with request metrics and logging.
type InstrumentedStore struct {
	inner Store
}

// NewInstrumentedStore wraps inner.
func NewInstrumentedStore(inner Store) *InstrumentedStore {
	return &InstrumentedStore{inner: inner}
}

func observe(ctx context.Context, op, collection string, start time.Time, err error) {
	duration := time.Since(start)
	status := statusOf(err)
	metrics.QueryRequestsTotal.WithLabelValues(op, status).Inc()
	metrics.QueryDuration.WithLabelValues(op).Observe(duration.Seconds())

	log := logger.FromContext(ctx)
	if err != nil && status == "error" {
		log.Error("Store operation failed",
			zap.String("operation", op),
			zap.String("collection", collection),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	log.Debug("Store operation completed",
		zap.String("operation", op),
		zap.String("collection", collection),
		zap.String("status", status),
		zap.Duration("duration", duration),
	)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrInvalidShardKey), errors.Is(err, domain.ErrVectorDimMismatch):
		return "client_error"
	case errors.Is(err, domain.ErrInconsistentRead):
		return "inconsistent"
	default:
		return "error"
	}
}

// CoreSearchBatch implements Store.
func (s *InstrumentedStore) CoreSearchBatch(
	ctx context.Context, collection string, batch request.CoreSearchRequestBatch,
	sel shard.Selector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	start := time.Now()
	res, err := s.inner.CoreSearchBatch(ctx, collection, batch, sel, params)
	observe(ctx, "core_search_batch", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// Group implements Store.
func (s *InstrumentedStore) Group(
	ctx context.Context, collection string, req request.GroupRequest,
	sel shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	start := time.Now()
	res, err := s.inner.Group(ctx, collection, req, sel, params)
	observe(ctx, "group", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// DiscoverBatch implements Store.
func (s *InstrumentedStore) DiscoverBatch(
	ctx context.Context, collection string, reqs []request.DiscoverWithSelector,
	params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	start := time.Now()
	res, err := s.inner.DiscoverBatch(ctx, collection, reqs, params)
	observe(ctx, "discover_batch", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// Count implements Store.
func (s *InstrumentedStore) Count(
	ctx context.Context, collection string, req request.CountRequest,
	sel shard.Selector, params request.ReadParams,
) (result.CountResult, error) {
	start := time.Now()
	res, err := s.inner.Count(ctx, collection, req, sel, params)
	observe(ctx, "count", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// Retrieve implements Store.
func (s *InstrumentedStore) Retrieve(
	ctx context.Context, collection string, req request.PointRequest,
	sel shard.Selector, params request.ReadParams,
) ([]point.Record, error) {
	start := time.Now()
	res, err := s.inner.Retrieve(ctx, collection, req, sel, params)
	observe(ctx, "retrieve", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// Scroll implements Store.
func (s *InstrumentedStore) Scroll(
	ctx context.Context, collection string, req request.ScrollRequest,
	sel shard.Selector, params request.ReadParams,
) (result.ScrollResult, error) {
	start := time.Now()
	res, err := s.inner.Scroll(ctx, collection, req, sel, params)
	observe(ctx, "scroll", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// QueryBatch implements Store.
func (s *InstrumentedStore) QueryBatch(
	ctx context.Context, collection string, reqs []request.QueryWithSelector,
	params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	start := time.Now()
	res, err := s.inner.QueryBatch(ctx, collection, reqs, params)
	observe(ctx, "query_batch", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}

// SearchMatrix implements Store.
func (s *InstrumentedStore) SearchMatrix(
	ctx context.Context, collection string, req request.SearchMatrixRequest,
	sel shard.Selector, params request.ReadParams,
) (result.SearchMatrix, error) {
	start := time.Now()
	res, err := s.inner.SearchMatrix(ctx, collection, req, sel, params)
	observe(ctx, "search_matrix", collection, start, err)
	return res, err //nolint:wrapcheck // decorator
}
