package chi

import (
	"context"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	domtel "github.com/kailas-cloud/vecquery/internal/domain/telemetry"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
	telemetryuc "github.com/kailas-cloud/vecquery/internal/usecase/telemetry"
)

// QueryService runs the read operations of a collection.
type QueryService interface {
	CoreSearch(
		ctx context.Context, collection string, req request.CoreSearchRequest,
		sel shard.Selector, params request.ReadParams,
	) ([]point.ScoredPoint, error)
	SearchBatch(
		ctx context.Context, collection string, reqs []request.SearchWithSelector, params request.ReadParams,
	) ([][]point.ScoredPoint, error)
	SearchGroups(
		ctx context.Context, collection string, req request.SearchGroupsRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.GroupsResult, error)
	RecommendGroups(
		ctx context.Context, collection string, req request.RecommendGroupsRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.GroupsResult, error)
	QueryGroups(
		ctx context.Context, collection string, req request.CollectionQueryGroupsRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.GroupsResult, error)
	DiscoverBatch(
		ctx context.Context, collection string, batch request.DiscoverRequestBatch, params request.ReadParams,
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
	Query(
		ctx context.Context, collection string, req request.CollectionQueryRequest,
		sel shard.Selector, params request.ReadParams,
	) ([]point.ScoredPoint, error)
	QueryBatch(
		ctx context.Context, collection string, reqs []request.QueryWithSelector, params request.ReadParams,
	) ([][]point.ScoredPoint, error)
	SearchMatrix(
		ctx context.Context, collection string, req request.SearchMatrixRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.SearchMatrix, error)
}

// CollectionService manages collections and writes points.
type CollectionService interface {
	Create(ctx context.Context, acc access.Access, name string, cfg domcol.Config) (domcol.Collection, error)
	Get(ctx context.Context, acc access.Access, name string) (domcol.Collection, error)
	List(ctx context.Context, acc access.Access) ([]domcol.Collection, error)
	Delete(ctx context.Context, acc access.Access, name string) error
	Upsert(ctx context.Context, acc access.Access, name string, pts []point.Record) error
}

// UsageService records and reports hardware usage.
type UsageService interface {
	Record(ctx context.Context, collection string, hw *hardware.Acc)
	Report(ctx context.Context, acc access.Access, collection string, period domusage.Period) (domusage.Report, error)
}

// HealthService checks the backing stores.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// TelemetryService builds telemetry reports.
type TelemetryService interface {
	Report(ctx context.Context, acc access.Access, detail domtel.Detail) (telemetryuc.Report, error)
}
