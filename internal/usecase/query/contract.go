package query

import (
	"context"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// Store executes reads against the shards of a collection. Every operation
// checks access, honours read consistency and timeout, and accumulates
// hardware usage into params.HW.
type Store interface {
	CoreSearchBatch(
		ctx context.Context, collection string, batch request.CoreSearchRequestBatch,
		sel shard.Selector, params request.ReadParams,
	) ([][]point.ScoredPoint, error)

	Group(
		ctx context.Context, collection string, req request.GroupRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.GroupsResult, error)

	DiscoverBatch(
		ctx context.Context, collection string, reqs []request.DiscoverWithSelector,
		params request.ReadParams,
	) ([][]point.ScoredPoint, error)

	Count(
		ctx context.Context, collection string, req request.CountRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.CountResult, error)

	Retrieve(
		ctx context.Context, collection string, req request.PointRequest,
		sel shard.Selector, params request.ReadParams,
	) ([]point.Record, error)

	Scroll(
		ctx context.Context, collection string, req request.ScrollRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.ScrollResult, error)

	QueryBatch(
		ctx context.Context, collection string, reqs []request.QueryWithSelector,
		params request.ReadParams,
	) ([][]point.ScoredPoint, error)

	SearchMatrix(
		ctx context.Context, collection string, req request.SearchMatrixRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.SearchMatrix, error)
}

// DistanceResolver looks up the metric a collection vector is configured with.
// ok is false when the metric is unknown.
type DistanceResolver interface {
	Distance(
		ctx context.Context, collection, vectorName string, acc access.Access,
	) (d distance.Distance, ok bool, err error)
}

// Embedder vectorizes document inputs of universal queries.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
