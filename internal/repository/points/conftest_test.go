package points

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
)

const testCollectionName = "docs"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	mu sync.Mutex

	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn   func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	searchCountFn  func(ctx context.Context, index string, filters filter.Expression) (int, error)

	knnQueries  []db.KNNQuery
	listQueries []db.ListQuery
	calls       int
}

func (m *mockStore) record(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if fn != nil {
		fn()
	}
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	m.record(nil)
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	m.record(nil)
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.record(func() { m.knnQueries = append(m.knnQueries, *q) })
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	m.record(func() { m.listQueries = append(m.listQueries, *q) })
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index string, filters filter.Expression) (int, error) {
	m.record(nil)
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, filters)
	}
	return 0, nil
}

func (m *mockStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCollections struct {
	col domcol.Collection
	err error
}

func (m *mockCollections) Get(_ context.Context, name string) (domcol.Collection, error) {
	if m.err != nil {
		return domcol.Collection{}, m.err
	}
	if name != m.col.Name() {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return m.col, nil
}

// testCollection has two auto shards and one 2-d default vector.
func testCollection(d distance.Distance) domcol.Collection {
	return domcol.Reconstruct(testCollectionName, domcol.Config{
		Vectors:           []domcol.VectorParams{{Dim: 2, Distance: d}},
		Fields:            []field.Field{field.Reconstruct("author", field.Keyword)},
		ShardNumber:       2,
		ReplicationFactor: 1,
	}, 1700000000000, 1)
}

func newTestRepo(t *testing.T, col domcol.Collection, stores ...*mockStore) *Repo {
	t.Helper()
	replicas := make([]Store, len(stores))
	for i, s := range stores {
		replicas[i] = s
	}
	return New(&mockCollections{col: col}, Config{}, replicas...)
}

func readParams() request.ReadParams {
	return request.ReadParams{Access: access.Full(), HW: hardware.New()}
}

// pointFields renders a stored point the way the shard hash holds it.
func pointFields(t *testing.T, id uint64, payload map[string]any, vec []float32) map[string]string {
	t.Helper()
	fields := map[string]string{domain.FieldID: strconv.FormatUint(id, 10)}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		fields[domain.FieldPayload] = string(raw)
	}
	if vec != nil {
		fields[domain.VectorField("")] = db.EncodeVector(vec)
	}
	return fields
}

func entry(t *testing.T, shard uint32, id uint64, payload map[string]any, vec []float32) db.SearchEntry {
	t.Helper()
	return db.SearchEntry{
		Key:    domain.PointKey(testCollectionName, shard, id),
		Fields: pointFields(t, id, payload, vec),
	}
}

// shardOf extracts the shard number of an index name built by domain.ShardIndex.
// It runs on fan-out goroutines, so it reports with Errorf.
func shardOf(t *testing.T, index string) uint32 {
	t.Helper()
	for sh := range uint32(64) {
		if domain.ShardIndex(testCollectionName, sh) == index {
			return sh
		}
	}
	t.Errorf("unknown index %q", index)
	return 0
}

// knnByShard serves fixed entries per shard index.
func knnByShard(t *testing.T, entries map[uint32][]db.SearchEntry) func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
	return func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		es := entries[shardOf(t, q.IndexName)]
		return &db.SearchResult{Total: len(es), Entries: es}, nil
	}
}
