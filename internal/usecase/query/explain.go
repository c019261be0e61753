package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
	"github.com/kailas-cloud/vecquery/internal/explain"
	"github.com/kailas-cloud/vecquery/internal/logger"
)

// explainableQuery extracts the dense query vector of a nearest query.
// Other shapes and sparse or multi-dense vectors cannot be explained.
func explainableQuery(q request.QueryEnum) (vec []float32, vectorName string, ok bool) {
	n, isNearest := q.(request.Nearest)
	if !isNearest {
		return nil, "", false
	}
	d, isDense := vector.AsDense(n.Vector)
	if !isDense || len(d) == 0 {
		return nil, "", false
	}
	return d, n.Using, true
}

// storedDense returns the stored vector the query was scored against: the
// vector named like the query if it is dense, else the first dense vector.
func storedDense(s vector.Struct, name string) (vector.Dense, bool) {
	if v, ok := vector.Get(s, name); ok {
		if d, ok := vector.AsDense(v); ok {
			return d, true
		}
	}
	return vector.FirstDense(s)
}

func (s *Service) attachExplanations(
	ctx context.Context, collection, vectorName string, queryVec []float32,
	points []point.ScoredPoint, params request.ReadParams,
) error {
	if len(points) == 0 {
		return nil
	}
	metric, err := s.resolveDistance(ctx, collection, vectorName, params)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	for i := range points {
		stored, ok := storedDense(points[i].Vector, vectorName)
		if !ok {
			continue
		}
		if len(stored) != len(queryVec) {
			log.Debug("Skipping explanation for vector of different length",
				zap.String("collection", collection),
				zap.Uint64("point_id", uint64(points[i].ID)),
				zap.Int("query_dim", len(queryVec)),
				zap.Int("stored_dim", len(stored)),
			)
			continue
		}
		e := explain.Compute(metric, queryVec, stored, s.cfg.ExplainTopDimensions)
		points[i].Explanation = &e
	}
	return nil
}

func (s *Service) resolveDistance(
	ctx context.Context, collection, vectorName string, params request.ReadParams,
) (distance.Distance, error) {
	if s.distances == nil {
		return s.fallbackDistance(ctx, collection, nil)
	}
	d, ok, err := s.distances.Distance(ctx, collection, vectorName, params.Access)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, fmt.Errorf("resolve distance: %w", ctxErr)
	}
	switch {
	case err != nil:
		return s.fallbackDistance(ctx, collection, err)
	case !ok || !d.IsValid():
		return s.fallbackDistance(ctx, collection, nil)
	default:
		return d, nil
	}
}

func (s *Service) fallbackDistance(ctx context.Context, collection string, cause error) (distance.Distance, error) {
	if s.cfg.StrictDistance {
		if cause != nil {
			return 0, fmt.Errorf("resolve distance: %w", cause)
		}
		return 0, domain.NewServiceError(fmt.Sprintf("distance of collection %q is unknown", collection))
	}
	logger.FromContext(ctx).Warn("Explaining scores with fallback distance",
		zap.String("collection", collection),
		zap.Stringer("distance", s.cfg.FallbackDistance),
		zap.Error(cause),
	)
	return s.cfg.FallbackDistance, nil
}
