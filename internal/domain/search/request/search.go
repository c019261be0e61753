// Package request holds the request envelopes of every read operation.
package request

import (
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// Limits shared by the read operations.
const (
	DefaultLimit  = 10
	MaxLimit      = 10000
	MaxOffset     = 100000
	MaxBatchSize  = 100
	MaxGroupSize  = 100
	DefaultGroups = 10
)

// SearchParams tunes index behaviour.
type SearchParams struct {
	// HNSWEf overrides the EF_RUNTIME of the index.
	HNSWEf int
	// Exact forces exhaustive scoring of every point.
	Exact bool
}

// CoreSearchRequest is one resolved similarity search.
type CoreSearchRequest struct {
	Query          QueryEnum
	Filter         filter.Expression
	Params         *SearchParams
	Limit          int
	Offset         int
	WithPayload    point.WithPayload
	WithVector     *point.WithVector
	ScoreThreshold *float32
	// WithExplanation attaches per-dimension score explanations to the hits.
	WithExplanation bool
}

// Validate checks limits and the query shape, and applies the default limit.
func (r *CoreSearchRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < 0 || r.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrBadRequest, MaxLimit)
	}
	if r.Offset < 0 || r.Offset > MaxOffset {
		return fmt.Errorf("%w: offset must be between 0 and %d", domain.ErrBadRequest, MaxOffset)
	}
	return ValidateQueryEnum(r.Query)
}

// CoreSearchRequestBatch is several searches against the same shard selection.
type CoreSearchRequestBatch struct {
	Searches []CoreSearchRequest
}

// SearchWithSelector pairs a search with the shards it targets.
type SearchWithSelector struct {
	Request  CoreSearchRequest
	Selector shard.Selector
}

// GroupRequest buckets the hits of a universal query by a payload key.
type GroupRequest struct {
	Query CollectionQueryRequest
	// GroupBy is the payload key whose value identifies a group.
	GroupBy string
	// GroupSize is the maximum number of hits per group.
	GroupSize int
	// Limit is the maximum number of groups.
	Limit int
}

// Validate checks the grouping parameters and applies defaults.
func (r *GroupRequest) Validate() error {
	if r.GroupBy == "" {
		return fmt.Errorf("%w: group_by is required", domain.ErrBadRequest)
	}
	if r.GroupSize == 0 {
		r.GroupSize = 1
	}
	if r.GroupSize < 0 || r.GroupSize > MaxGroupSize {
		return fmt.Errorf("%w: group_size must be between 1 and %d", domain.ErrBadRequest, MaxGroupSize)
	}
	if r.Limit == 0 {
		r.Limit = DefaultGroups
	}
	if r.Limit < 0 || r.Limit*r.GroupSize > MaxLimit {
		return fmt.Errorf("%w: limit * group_size must not exceed %d", domain.ErrBadRequest, MaxLimit)
	}
	return nil
}

// SearchGroupsRequest is a nearest search grouped by payload key.
type SearchGroupsRequest struct {
	Search    CoreSearchRequest
	GroupBy   string
	GroupSize int
	Limit     int
}

// GroupRequest converts the search into a GroupRequest over a nearest query.
func (r SearchGroupsRequest) GroupRequest() (GroupRequest, error) {
	n, ok := r.Search.Query.(Nearest)
	if !ok {
		return GroupRequest{}, fmt.Errorf("%w: search groups requires a nearest query", domain.ErrBadRequest)
	}
	return GroupRequest{
		Query: CollectionQueryRequest{
			Query:          QueryNearest{Vector: RawVector{Vector: n.Vector}},
			Using:          n.Using,
			Filter:         r.Search.Filter,
			Params:         r.Search.Params,
			ScoreThreshold: r.Search.ScoreThreshold,
			WithPayload:    r.Search.WithPayload,
			WithVector:     r.Search.WithVector,
		},
		GroupBy:   r.GroupBy,
		GroupSize: r.GroupSize,
		Limit:     r.Limit,
	}, nil
}

// RecommendGroupsRequest is a recommendation grouped by payload key.
type RecommendGroupsRequest struct {
	Positive       []VectorInput
	Negative       []VectorInput
	Using          string
	Filter         filter.Expression
	Params         *SearchParams
	ScoreThreshold *float32
	WithPayload    point.WithPayload
	WithVector     *point.WithVector
	GroupBy        string
	GroupSize      int
	Limit          int
}

// GroupRequest converts the recommendation into a GroupRequest.
func (r RecommendGroupsRequest) GroupRequest() (GroupRequest, error) {
	if len(r.Positive) == 0 {
		return GroupRequest{}, fmt.Errorf("%w: recommend requires at least one positive example", domain.ErrBadRequest)
	}
	return GroupRequest{
		Query: CollectionQueryRequest{
			Query:          QueryRecommend{Positive: r.Positive, Negative: r.Negative},
			Using:          r.Using,
			Filter:         r.Filter,
			Params:         r.Params,
			ScoreThreshold: r.ScoreThreshold,
			WithPayload:    r.WithPayload,
			WithVector:     r.WithVector,
		},
		GroupBy:   r.GroupBy,
		GroupSize: r.GroupSize,
		Limit:     r.Limit,
	}, nil
}

// CollectionQueryGroupsRequest is a universal query grouped by payload key.
type CollectionQueryGroupsRequest struct {
	Query     CollectionQueryRequest
	GroupBy   string
	GroupSize int
	Limit     int
}

// GroupRequest converts the grouped query into a GroupRequest.
func (r CollectionQueryGroupsRequest) GroupRequest() GroupRequest {
	return GroupRequest{Query: r.Query, GroupBy: r.GroupBy, GroupSize: r.GroupSize, Limit: r.Limit}
}

// DiscoverRequest is one discovery search. ShardKeys restricts it to
// the shards owning those keys; none targets every shard.
type DiscoverRequest struct {
	Target      VectorInput
	Context     []ContextInputPair
	Using       string
	Filter      filter.Expression
	Params      *SearchParams
	Limit       int
	Offset      int
	WithPayload point.WithPayload
	WithVector  *point.WithVector
	ShardKeys   []shard.Key
}

// Selector returns the shard selection of the request.
func (r DiscoverRequest) Selector() shard.Selector {
	return shard.ForKeys(r.ShardKeys...)
}

// CollectionQuery converts the discovery into a universal query. Without a
// target it becomes a context query.
func (r DiscoverRequest) CollectionQuery() CollectionQueryRequest {
	var q Query = QueryDiscover{Target: r.Target, Context: r.Context}
	if r.Target == nil {
		q = QueryContext{Pairs: r.Context}
	}
	return CollectionQueryRequest{
		Query:       q,
		Using:       r.Using,
		Filter:      r.Filter,
		Params:      r.Params,
		Limit:       r.Limit,
		Offset:      r.Offset,
		WithPayload: r.WithPayload,
		WithVector:  r.WithVector,
	}
}

// DiscoverRequestBatch is several discovery searches.
type DiscoverRequestBatch struct {
	Searches []DiscoverRequest
}

// DiscoverWithSelector pairs a discovery search with the shards it targets.
type DiscoverWithSelector struct {
	Request  DiscoverRequest
	Selector shard.Selector
}
