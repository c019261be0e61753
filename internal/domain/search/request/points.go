package request

import (
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
)

// Read limits for point operations.
const (
	MaxRetrieveIDs     = 1000
	DefaultScrollLimit = 10
	DefaultMatrixLimit = 3
	DefaultMatrixSize  = 10
	MaxMatrixSample    = 1000
)

// CountRequest counts points matching a filter.
type CountRequest struct {
	Filter filter.Expression
	// Exact is accepted for compatibility; counts are always exact.
	Exact bool
}

// PointRequest retrieves points by ID.
type PointRequest struct {
	IDs         []point.ID
	WithPayload point.WithPayload
	WithVector  *point.WithVector
}

// Validate checks the ID list.
func (r PointRequest) Validate() error {
	if len(r.IDs) > MaxRetrieveIDs {
		return fmt.Errorf("%w: at most %d ids per request", domain.ErrBadRequest, MaxRetrieveIDs)
	}
	return nil
}

// ScrollRequest pages through points in ascending ID order.
type ScrollRequest struct {
	// Offset is the first ID of the page; nil starts at the beginning.
	Offset      *point.ID
	Limit       int
	Filter      filter.Expression
	WithPayload point.WithPayload
	WithVector  *point.WithVector
}

// Validate checks the limit and applies the default.
func (r *ScrollRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = DefaultScrollLimit
	}
	if r.Limit < 0 || r.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrBadRequest, MaxLimit)
	}
	if r.Offset != nil && *r.Offset > point.MaxID {
		return fmt.Errorf("%w: offset must be at most %d", domain.ErrBadRequest, point.MaxID)
	}
	return nil
}

// SearchMatrixRequest computes nearest neighbours among a sample of points.
type SearchMatrixRequest struct {
	Filter filter.Expression
	// Sample is the number of points taken into the matrix.
	Sample int
	// Limit is the number of neighbours per sampled point.
	Limit int
	Using string
}

// Validate checks the sample size and applies defaults.
func (r *SearchMatrixRequest) Validate() error {
	if r.Sample == 0 {
		r.Sample = DefaultMatrixSize
	}
	if r.Limit == 0 {
		r.Limit = DefaultMatrixLimit
	}
	if r.Sample < 0 || r.Sample > MaxMatrixSample {
		return fmt.Errorf("%w: sample must be between 1 and %d", domain.ErrBadRequest, MaxMatrixSample)
	}
	if r.Limit < 0 || r.Limit > r.Sample {
		return fmt.Errorf("%w: limit must be between 1 and sample", domain.ErrBadRequest)
	}
	return nil
}
