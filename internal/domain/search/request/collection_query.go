package request

import (
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// MaxPrefetchDepth bounds prefetch nesting.
const MaxPrefetchDepth = 4

// Prefetch is a sub-query whose results feed the enclosing query.
type Prefetch struct {
	Prefetch       []Prefetch
	Query          Query
	Using          string
	Filter         filter.Expression
	Params         *SearchParams
	ScoreThreshold *float32
	Limit          int
}

// CollectionQueryRequest is a universal query. A nil Query returns points in
// ID order (or the prefetch results unchanged when there is a single prefetch).
type CollectionQueryRequest struct {
	Prefetch       []Prefetch
	Query          Query
	Using          string
	Filter         filter.Expression
	Params         *SearchParams
	ScoreThreshold *float32
	Limit          int
	Offset         int
	WithPayload    point.WithPayload
	WithVector     *point.WithVector
}

// Validate checks limits, fusion placement and prefetch depth, and applies defaults.
func (r *CollectionQueryRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < 0 || r.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrBadRequest, MaxLimit)
	}
	if r.Offset < 0 || r.Offset > MaxOffset {
		return fmt.Errorf("%w: offset must be between 0 and %d", domain.ErrBadRequest, MaxOffset)
	}
	if _, ok := r.Query.(QueryFusion); ok && len(r.Prefetch) == 0 {
		return fmt.Errorf("%w: fusion requires prefetches", domain.ErrBadRequest)
	}
	return validatePrefetches(r.Prefetch, 1)
}

func validatePrefetches(prefetches []Prefetch, depth int) error {
	if len(prefetches) == 0 {
		return nil
	}
	if depth > MaxPrefetchDepth {
		return fmt.Errorf("%w: prefetch nesting deeper than %d", domain.ErrBadRequest, MaxPrefetchDepth)
	}
	for i := range prefetches {
		p := &prefetches[i]
		if p.Limit == 0 {
			p.Limit = DefaultLimit
		}
		if p.Limit < 0 || p.Limit > MaxLimit {
			return fmt.Errorf("%w: prefetch limit must be between 1 and %d", domain.ErrBadRequest, MaxLimit)
		}
		if _, ok := p.Query.(QueryFusion); ok && len(p.Prefetch) == 0 {
			return fmt.Errorf("%w: fusion requires prefetches", domain.ErrBadRequest)
		}
		if err := validatePrefetches(p.Prefetch, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// AllInputs returns every vector input referenced by the request and its prefetches.
func (r CollectionQueryRequest) AllInputs() []VectorInput {
	out := Inputs(r.Query)
	var walk func([]Prefetch)
	walk = func(ps []Prefetch) {
		for _, p := range ps {
			out = append(out, Inputs(p.Query)...)
			walk(p.Prefetch)
		}
	}
	walk(r.Prefetch)
	return out
}

// MapAllInputs returns a copy of r with every vector input (prefetches included) replaced.
func (r CollectionQueryRequest) MapAllInputs(fn func(VectorInput) (VectorInput, error)) (CollectionQueryRequest, error) {
	q, err := MapInputs(r.Query, fn)
	if err != nil {
		return r, err
	}
	ps, err := mapPrefetches(r.Prefetch, fn)
	if err != nil {
		return r, err
	}
	r.Query = q
	r.Prefetch = ps
	return r, nil
}

func mapPrefetches(ps []Prefetch, fn func(VectorInput) (VectorInput, error)) ([]Prefetch, error) {
	if ps == nil {
		return nil, nil
	}
	out := make([]Prefetch, len(ps))
	for i, p := range ps {
		q, err := MapInputs(p.Query, fn)
		if err != nil {
			return nil, err
		}
		nested, err := mapPrefetches(p.Prefetch, fn)
		if err != nil {
			return nil, err
		}
		p.Query = q
		p.Prefetch = nested
		out[i] = p
	}
	return out, nil
}

// QueryWithSelector pairs a universal query with the shards it targets.
type QueryWithSelector struct {
	Request  CollectionQueryRequest
	Selector shard.Selector
}
