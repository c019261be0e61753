package telemetry

import (
	"context"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
)

// CollectionLister lists the collections visible to an access context.
type CollectionLister interface {
	List(ctx context.Context, acc access.Access) ([]domcol.Collection, error)
}

// PointCounter counts the points of a shard selection.
type PointCounter interface {
	Count(
		ctx context.Context, collection string, req request.CountRequest,
		sel shard.Selector, params request.ReadParams,
	) (result.CountResult, error)
}

// UsageReporter reports accumulated hardware usage.
type UsageReporter interface {
	Report(ctx context.Context, acc access.Access, collection string, period domusage.Period) (domusage.Report, error)
}
