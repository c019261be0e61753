// Package points is the table of contents of a collection: it routes reads to
// the shard indexes of every replica store, merges their answers under the
// requested read consistency, and writes points to their shard.
package points

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/consistency"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

// Store is the consumer interface of one replica (ISP).
type Store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, filters filter.Expression) (int, error)
}

// collections resolves collection configuration.
type collections interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
}

// Config tunes shard reads.
type Config struct {
	// MaxParallelShards bounds concurrent shard calls per replica read.
	MaxParallelShards int64
	// Oversample multiplies the KNN candidate count when the engine order can
	// differ from the final order (Manhattan, recommend, discover, context, groups).
	Oversample int
	// ExactEF is the EF_RUNTIME used for exact searches.
	ExactEF int
}

// Repo implements usecase/query.Store over Redis shard indexes.
type Repo struct {
	collections collections
	replicas    []Store
	cfg         Config
}

// New creates a points repository. replicas[0] is the primary store.
func New(cols collections, cfg Config, replicas ...Store) *Repo {
	if cfg.MaxParallelShards <= 0 {
		cfg.MaxParallelShards = 8
	}
	if cfg.Oversample <= 1 {
		cfg.Oversample = 4
	}
	if cfg.ExactEF <= 0 {
		cfg.ExactEF = 1000
	}
	return &Repo{collections: cols, replicas: replicas, cfg: cfg}
}

// replicaCount is the number of stores holding a copy of col.
func (r *Repo) replicaCount(col domcol.Collection) int {
	return min(col.ReplicationFactor(), len(r.replicas))
}

// withCollection checks access, applies the call timeout and loads the
// collection before running fn. A deadline hit surfaces as domain.TimeoutError.
func withCollection[T any](
	ctx context.Context, r *Repo, op, collection string, mode access.Mode, params request.ReadParams,
	fn func(ctx context.Context, col domcol.Collection) (T, error),
) (T, error) {
	var zero T
	if err := params.Access.CheckCollection(collection, mode); err != nil {
		return zero, err
	}
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	out, err := func() (T, error) {
		col, err := r.collections.Get(ctx, collection)
		if err != nil {
			return zero, err
		}
		return fn(ctx, col)
	}()
	if err != nil {
		if params.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &domain.TimeoutError{Operation: op, Timeout: params.Timeout}
		}
		return zero, fmt.Errorf("%s %s: %w", op, collection, err)
	}
	return out, nil
}

// readReplicas runs read on the replicas the consistency plan selects and
// returns the successful responses together with the number of responses a
// result must appear in. When a plan that asks fewer than all replicas falls
// short, the replicas not yet asked are tried in order.
func readReplicas[T any](
	ctx context.Context, r *Repo, col domcol.Collection, rc consistency.ReadConsistency,
	read func(ctx context.Context, s Store) (T, error),
) ([]T, int, error) {
	total := r.replicaCount(col)
	plan, err := rc.Plan(total)
	if err != nil {
		return nil, 0, err
	}

	var ok []T
	var firstErr error
	for next, want := 0, plan.Query; next < total && len(ok) < plan.Required; {
		n := min(want, total-next)
		responses := make([]T, n)
		errs := make([]error, n)
		var g errgroup.Group
		for i := range n {
			g.Go(func() error {
				responses[i], errs[i] = read(ctx, r.replicas[next+i])
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		for i, err := range errs {
			replica := next + i
			if err != nil {
				metrics.ReplicaReadsTotal.WithLabelValues(strconv.Itoa(replica), "error").Inc()
				if firstErr == nil {
					firstErr = err
				}
				logger.FromContext(ctx).Warn("replica read failed",
					zap.String("collection", col.Name()), zap.Int("replica", replica), zap.Error(err))
				continue
			}
			metrics.ReplicaReadsTotal.WithLabelValues(strconv.Itoa(replica), "ok").Inc()
			ok = append(ok, responses[i])
		}
		next += n
		want = plan.Required - len(ok)
	}

	if len(ok) < plan.Required {
		if plan.Required == 1 {
			return nil, 0, firstErr
		}
		return nil, 0, fmt.Errorf("%w: %d of %d required replicas answered: %w",
			domain.ErrInconsistentRead, len(ok), plan.Required, firstErr)
	}
	return ok, plan.Required, nil
}

// fanShards calls fn for every shard with at most limit calls in flight and
// concatenates the results in shard order. The first error cancels the rest.
func fanShards[T any](
	ctx context.Context, shards []uint32, limit int64,
	fn func(ctx context.Context, shard uint32) ([]T, error),
) ([]T, error) {
	sem := semaphore.NewWeighted(limit)
	g, gctx := errgroup.WithContext(ctx)
	out := make([][]T, len(shards))
	for i, sh := range shards {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			res, err := fn(gctx, sh)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Concat(out...), nil
}
