// Package query coordinates every read operation of a collection: it batches
// requests by shard selection, resolves document inputs, attaches score
// explanations, and delegates execution to the shard store.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquery/internal/batching"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/explain"
)

// Config tunes the orchestrator.
type Config struct {
	// ExplainTopDimensions is the number of dimensions per explanation.
	ExplainTopDimensions int
	// FallbackDistance is used for explanations when the collection metric cannot be resolved.
	FallbackDistance distance.Distance
	// StrictDistance fails explained searches instead of falling back.
	StrictDistance bool
	// InferenceModel is the embedding model documents are embedded with.
	InferenceModel string
}

// Service is the read façade of the engine. It keeps no state between calls.
type Service struct {
	store     Store
	distances DistanceResolver
	embed     Embedder
	cfg       Config
}

// New creates a query service. embed may be nil when inference is disabled.
func New(store Store, distances DistanceResolver, embed Embedder, cfg Config) *Service {
	if cfg.ExplainTopDimensions <= 0 {
		cfg.ExplainTopDimensions = explain.DefaultTopDimensions
	}
	if !cfg.FallbackDistance.IsValid() {
		cfg.FallbackDistance = distance.Cosine
	}
	return &Service{store: store, distances: distances, embed: embed, cfg: cfg}
}

// CoreSearch runs one search. With WithExplanation set and a dense nearest
// query, every hit carrying a dense vector gets a score explanation; vectors
// are returned only if the request asked for them. The timeout covers the
// store call, distance resolution and the explanations.
func (s *Service) CoreSearch(
	ctx context.Context, collection string, req request.CoreSearchRequest,
	sel shard.Selector, params request.ReadParams,
) ([]point.ScoredPoint, error) {
	ctx, cancel := withTimeout(ctx, params.Timeout)
	defer cancel()

	originalWithVector := req.WithVector

	var (
		queryVec   []float32
		vectorName string
		explained  bool
	)
	if req.WithExplanation {
		queryVec, vectorName, explained = explainableQuery(req.Query)
		if explained {
			req.WithVector = &point.WithVector{Enabled: true}
		}
	}

	batch := request.CoreSearchRequestBatch{Searches: []request.CoreSearchRequest{req}}
	res, err := s.CoreSearchBatch(ctx, collection, batch, sel, params)
	if err != nil {
		return nil, timeoutError("core search", params.Timeout, err)
	}
	if len(res) == 0 {
		return nil, domain.NewServiceError("empty search result")
	}
	points := res[0]

	if explained {
		if err := s.attachExplanations(ctx, collection, vectorName, queryVec, points, params); err != nil {
			return nil, timeoutError("core search", params.Timeout, err)
		}
		for i := range points {
			points[i].Vector = originalWithVector.Apply(points[i].Vector)
		}
	}
	return points, nil
}

// CoreSearchBatch runs searches that share a shard selection.
func (s *Service) CoreSearchBatch(
	ctx context.Context, collection string, batch request.CoreSearchRequestBatch,
	sel shard.Selector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	res, err := s.store.CoreSearchBatch(ctx, collection, batch, sel, params)
	if err != nil {
		return nil, fmt.Errorf("core search batch: %w", err)
	}
	return res, nil
}

// SearchBatch runs searches with individual shard selections. Searches sharing
// a selection are sent in one store call; results keep the request order.
func (s *Service) SearchBatch(
	ctx context.Context, collection string, reqs []request.SearchWithSelector,
	params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	ctx, cancel := withTimeout(ctx, params.Timeout)
	defer cancel()

	res, err := batching.Do(ctx, reqs,
		func(r request.SearchWithSelector) (shard.Selector, error) {
			return r.Selector, r.Selector.Validate()
		},
		func(r request.SearchWithSelector, b *request.CoreSearchRequestBatch) error {
			b.Searches = append(b.Searches, r.Request)
			return nil
		},
		func(sel shard.Selector, b request.CoreSearchRequestBatch) (batching.RunFunc[[]point.ScoredPoint], error) {
			if len(b.Searches) == 0 {
				return nil, nil
			}
			return func(ctx context.Context) ([][]point.ScoredPoint, error) {
				return s.CoreSearchBatch(ctx, collection, b, sel, params)
			}, nil
		},
	)
	if err != nil {
		return nil, timeoutError("search batch", params.Timeout, err)
	}
	return res, nil
}

// SearchGroups runs a nearest search and buckets the hits by payload key.
func (s *Service) SearchGroups(
	ctx context.Context, collection string, req request.SearchGroupsRequest,
	sel shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	g, err := req.GroupRequest()
	if err != nil {
		return result.GroupsResult{}, err
	}
	return s.group(ctx, collection, g, sel, params)
}

// RecommendGroups runs a recommendation and buckets the hits by payload key.
func (s *Service) RecommendGroups(
	ctx context.Context, collection string, req request.RecommendGroupsRequest,
	sel shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	g, err := req.GroupRequest()
	if err != nil {
		return result.GroupsResult{}, err
	}
	return s.group(ctx, collection, g, sel, params)
}

// QueryGroups runs a universal query and buckets the hits by payload key.
func (s *Service) QueryGroups(
	ctx context.Context, collection string, req request.CollectionQueryGroupsRequest,
	sel shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	return s.group(ctx, collection, req.GroupRequest(), sel, params)
}

func (s *Service) group(
	ctx context.Context, collection string, g request.GroupRequest,
	sel shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	q, err := s.resolveDocuments(ctx, g.Query)
	if err != nil {
		return result.GroupsResult{}, err
	}
	g.Query = q
	res, err := s.store.Group(ctx, collection, g, sel, params)
	if err != nil {
		return result.GroupsResult{}, fmt.Errorf("group: %w", err)
	}
	return res, nil
}

// DiscoverBatch runs discovery searches. A request without shard keys targets every shard.
func (s *Service) DiscoverBatch(
	ctx context.Context, collection string, batch request.DiscoverRequestBatch,
	params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	reqs := make([]request.DiscoverWithSelector, len(batch.Searches))
	cache := make(documentCache)
	for i, r := range batch.Searches {
		resolved, err := s.resolveDiscover(ctx, cache, r)
		if err != nil {
			return nil, err
		}
		reqs[i] = request.DiscoverWithSelector{Request: resolved, Selector: r.Selector()}
	}
	res, err := s.store.DiscoverBatch(ctx, collection, reqs, params)
	if err != nil {
		return nil, fmt.Errorf("discover batch: %w", err)
	}
	return res, nil
}

// Count counts points matching a filter.
func (s *Service) Count(
	ctx context.Context, collection string, req request.CountRequest,
	sel shard.Selector, params request.ReadParams,
) (result.CountResult, error) {
	res, err := s.store.Count(ctx, collection, req, sel, params)
	if err != nil {
		return result.CountResult{}, fmt.Errorf("count: %w", err)
	}
	return res, nil
}

// Retrieve fetches points by ID.
func (s *Service) Retrieve(
	ctx context.Context, collection string, req request.PointRequest,
	sel shard.Selector, params request.ReadParams,
) ([]point.Record, error) {
	res, err := s.store.Retrieve(ctx, collection, req, sel, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return res, nil
}

// Scroll returns one page of points in ID order.
func (s *Service) Scroll(
	ctx context.Context, collection string, req request.ScrollRequest,
	sel shard.Selector, params request.ReadParams,
) (result.ScrollResult, error) {
	res, err := s.store.Scroll(ctx, collection, req, sel, params)
	if err != nil {
		return result.ScrollResult{}, fmt.Errorf("scroll: %w", err)
	}
	return res, nil
}

// Query runs one universal query.
func (s *Service) Query(
	ctx context.Context, collection string, req request.CollectionQueryRequest,
	sel shard.Selector, params request.ReadParams,
) ([]point.ScoredPoint, error) {
	res, err := s.QueryBatch(ctx, collection, []request.QueryWithSelector{{Request: req, Selector: sel}}, params)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, domain.NewServiceError("empty query result")
	}
	return res[0], nil
}

// QueryBatch runs universal queries, each with its own shard selection.
func (s *Service) QueryBatch(
	ctx context.Context, collection string, reqs []request.QueryWithSelector,
	params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	resolved := make([]request.QueryWithSelector, len(reqs))
	cache := make(documentCache)
	for i, r := range reqs {
		q, err := s.resolveDocumentsCached(ctx, cache, r.Request)
		if err != nil {
			return nil, err
		}
		resolved[i] = request.QueryWithSelector{Request: q, Selector: r.Selector}
	}
	res, err := s.store.QueryBatch(ctx, collection, resolved, params)
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}
	return res, nil
}

// SearchMatrix computes nearest neighbours among a sample of points.
func (s *Service) SearchMatrix(
	ctx context.Context, collection string, req request.SearchMatrixRequest,
	sel shard.Selector, params request.ReadParams,
) (result.SearchMatrix, error) {
	res, err := s.store.SearchMatrix(ctx, collection, req, sel, params)
	if err != nil {
		return result.SearchMatrix{}, fmt.Errorf("search matrix: %w", err)
	}
	return res, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// timeoutError turns a deadline hit by the orchestrator's own timeout into ErrTimeout.
func timeoutError(op string, timeout time.Duration, err error) error {
	if timeout > 0 && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return &domain.TimeoutError{Operation: op, Timeout: timeout}
	}
	return err
}
