package query

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

type mockStore struct {
	mu sync.Mutex

	coreSearchBatchFn func(request.CoreSearchRequestBatch, shard.Selector) ([][]point.ScoredPoint, error)
	groupFn           func(request.GroupRequest) (result.GroupsResult, error)
	discoverBatchFn   func([]request.DiscoverWithSelector) ([][]point.ScoredPoint, error)
	countFn           func(request.CountRequest) (result.CountResult, error)
	retrieveFn        func(request.PointRequest) ([]point.Record, error)
	scrollFn          func(request.ScrollRequest) (result.ScrollResult, error)
	queryBatchFn      func([]request.QueryWithSelector) ([][]point.ScoredPoint, error)
	searchMatrixFn    func(request.SearchMatrixRequest) (result.SearchMatrix, error)

	coreSearchCalls []request.CoreSearchRequestBatch
	lastParams      request.ReadParams
}

func (m *mockStore) CoreSearchBatch(
	_ context.Context, _ string, batch request.CoreSearchRequestBatch,
	sel shard.Selector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	m.mu.Lock()
	m.coreSearchCalls = append(m.coreSearchCalls, batch)
	m.lastParams = params
	m.mu.Unlock()
	return m.coreSearchBatchFn(batch, sel)
}

func (m *mockStore) Group(
	_ context.Context, _ string, req request.GroupRequest,
	_ shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	m.lastParams = params
	return m.groupFn(req)
}

func (m *mockStore) DiscoverBatch(
	_ context.Context, _ string, reqs []request.DiscoverWithSelector,
	_ request.ReadParams,
) ([][]point.ScoredPoint, error) {
	return m.discoverBatchFn(reqs)
}

func (m *mockStore) Count(
	_ context.Context, _ string, req request.CountRequest,
	_ shard.Selector, _ request.ReadParams,
) (result.CountResult, error) {
	return m.countFn(req)
}

func (m *mockStore) Retrieve(
	_ context.Context, _ string, req request.PointRequest,
	_ shard.Selector, _ request.ReadParams,
) ([]point.Record, error) {
	return m.retrieveFn(req)
}

func (m *mockStore) Scroll(
	_ context.Context, _ string, req request.ScrollRequest,
	_ shard.Selector, _ request.ReadParams,
) (result.ScrollResult, error) {
	return m.scrollFn(req)
}

func (m *mockStore) QueryBatch(
	_ context.Context, _ string, reqs []request.QueryWithSelector,
	_ request.ReadParams,
) ([][]point.ScoredPoint, error) {
	return m.queryBatchFn(reqs)
}

func (m *mockStore) SearchMatrix(
	_ context.Context, _ string, req request.SearchMatrixRequest,
	_ shard.Selector, _ request.ReadParams,
) (result.SearchMatrix, error) {
	return m.searchMatrixFn(req)
}

type mockDistances struct {
	d      distance.Distance
	ok     bool
	err    error
	called bool
	name   string
	// wait, when set, holds every call until ctx is done or wait elapses.
	wait time.Duration
}

func (m *mockDistances) Distance(
	ctx context.Context, _, vectorName string, _ access.Access,
) (distance.Distance, bool, error) {
	m.called = true
	m.name = vectorName
	if m.wait > 0 {
		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		case <-time.After(m.wait):
		}
	}
	return m.d, m.ok, m.err
}

type mockEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 1}, nil
}

func readParams() request.ReadParams {
	return request.ReadParams{Access: access.Full()}
}
