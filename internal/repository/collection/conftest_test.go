package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vecquery/internal/db"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

const testVectorDim = 1024

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetnxFn       func(ctx context.Context, key, field, value string) (bool, error)
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn    func(ctx context.Context, name string) error
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	if m.hsetnxFn != nil {
		return m.hsetnxFn(ctx, key, field, value)
	}
	return true, nil
}

func (m *mockStore) ScanHashes(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"test-collection",
		domcol.Config{
			Vectors: []domcol.VectorParams{
				{Name: "", Dim: testVectorDim, Distance: distance.Cosine},
				{Name: "img", Dim: 4, Distance: distance.Manhattan},
			},
			Fields: []field.Field{
				field.Reconstruct("language", field.Keyword),
				field.Reconstruct("priority", field.Numeric),
			},
			ShardNumber:       2,
			ReplicationFactor: 1,
		},
		1700000000000,
		1,
	)
}

func testHash(name string, createdAt string) map[string]string {
	return map[string]string{
		"name":               name,
		"fields_json":        `[{"name":"language","type":"keyword"}]`,
		"vectors_json":       `[{"name":"","dim":1024,"distance":"Cosine"},{"name":"img","dim":4,"distance":"Euclid"}]`,
		"shard_number":       "2",
		"replication_factor": "1",
		"created_at":         createdAt,
		"revision":           "1",
	}
}
