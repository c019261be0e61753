package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
)

// --- Mocks ---

type mockRepo struct {
	created    domcol.Collection
	getResult  domcol.Collection
	listResult []domcol.Collection
	createErr  error
	getErr     error
	listErr    error
	deleteErr  error
}

func (m *mockRepo) Create(_ context.Context, col domcol.Collection) error {
	m.created = col
	return m.createErr
}

func (m *mockRepo) Get(_ context.Context, _ string) (domcol.Collection, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) List(_ context.Context) ([]domcol.Collection, error) {
	return m.listResult, m.listErr
}

func (m *mockRepo) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

type mockPoints struct {
	upsertFn func(ctx context.Context, collection string, pts []point.Record, acc access.Access) error
}

func (m *mockPoints) Upsert(ctx context.Context, collection string, pts []point.Record, acc access.Access) error {
	return m.upsertFn(ctx, collection, pts, acc)
}

func testConfig() domcol.Config {
	return domcol.Config{
		Vectors: []domcol.VectorParams{{Dim: 4, Distance: distance.Cosine}},
	}
}

func makeCollection(t *testing.T, name string) domcol.Collection {
	t.Helper()
	col, err := domcol.New(name, testConfig())
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	return col
}

// --- Tests ---

func TestCreate_Success(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	cfg := testConfig()
	f, err := field.New("lang", field.Keyword)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	cfg.Fields = []field.Field{f}

	col, err := svc.Create(context.Background(), access.Full(), "test-col", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "test-col" {
		t.Errorf("expected name 'test-col', got %q", col.Name())
	}
	if col.ShardNumber() != 1 || col.ReplicationFactor() != 1 {
		t.Errorf("expected defaults 1/1, got %d/%d", col.ShardNumber(), col.ReplicationFactor())
	}
	if repo.created.Name() != "test-col" {
		t.Error("expected repo.Create to be called")
	}
}

func TestCreate_InvalidConfig(t *testing.T) {
	svc := New(&mockRepo{})

	_, err := svc.Create(context.Background(), access.Full(), "test-col", domcol.Config{})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestCreate_InvalidName(t *testing.T) {
	svc := New(&mockRepo{})

	_, err := svc.Create(context.Background(), access.Full(), "bad name!", testConfig())
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestCreate_ReadOnlyForbidden(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	_, err := svc.Create(context.Background(), access.Global(access.Read), "test-col", testConfig())
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.created.Name() != "" {
		t.Error("repo.Create must not be called")
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	svc := New(&mockRepo{createErr: domain.ErrAlreadyExists})

	_, err := svc.Create(context.Background(), access.Full(), "test-col", testConfig())
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGet_Success(t *testing.T) {
	svc := New(&mockRepo{getResult: makeCollection(t, "test-col")})

	col, err := svc.Get(context.Background(), access.Full(), "test-col")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "test-col" {
		t.Errorf("expected name 'test-col', got %q", col.Name())
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockRepo{getErr: domain.ErrNotFound})

	_, err := svc.Get(context.Background(), access.Full(), "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_Forbidden(t *testing.T) {
	svc := New(&mockRepo{getResult: makeCollection(t, "test-col")})
	acc := access.Collections(map[string]access.Mode{"other": access.Read})

	_, err := svc.Get(context.Background(), acc, "test-col")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestList_FiltersByAccess(t *testing.T) {
	cols := []domcol.Collection{makeCollection(t, "a"), makeCollection(t, "b")}
	svc := New(&mockRepo{listResult: cols})
	acc := access.Collections(map[string]access.Mode{"b": access.Read})

	result, err := svc.List(context.Background(), acc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Name() != "b" {
		t.Errorf("expected only collection b, got %d", len(result))
	}
}

func TestList_Empty(t *testing.T) {
	svc := New(&mockRepo{listResult: []domcol.Collection{}})

	result, err := svc.List(context.Background(), access.Full())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected 0 collections, got %d", len(result))
	}
}

func TestList_Error(t *testing.T) {
	svc := New(&mockRepo{listErr: errors.New("boom")})

	if _, err := svc.List(context.Background(), access.Full()); err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete_Success(t *testing.T) {
	svc := New(&mockRepo{})

	if err := svc.Delete(context.Background(), access.Full(), "test-col"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := New(&mockRepo{deleteErr: domain.ErrNotFound})

	err := svc.Delete(context.Background(), access.Full(), "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_Forbidden(t *testing.T) {
	acc := access.Collections(map[string]access.Mode{"test-col": access.ReadWrite})
	svc := New(&mockRepo{})

	err := svc.Delete(context.Background(), acc, "test-col")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUpsert_Delegates(t *testing.T) {
	var gotCollection string
	var gotPoints int
	svc := New(&mockRepo{}).WithPoints(&mockPoints{
		upsertFn: func(_ context.Context, collection string, pts []point.Record, _ access.Access) error {
			gotCollection = collection
			gotPoints = len(pts)
			return nil
		},
	})

	err := svc.Upsert(context.Background(), access.Full(), "docs", []point.Record{{ID: 1}, {ID: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCollection != "docs" || gotPoints != 2 {
		t.Errorf("upsert got %q/%d", gotCollection, gotPoints)
	}
}

func TestUpsert_Validation(t *testing.T) {
	called := false
	svc := New(&mockRepo{}).WithPoints(&mockPoints{
		upsertFn: func(context.Context, string, []point.Record, access.Access) error {
			called = true
			return nil
		},
	})

	if err := svc.Upsert(context.Background(), access.Full(), "docs", nil); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("empty upsert err = %v", err)
	}
	tooMany := make([]point.Record, MaxUpsertPoints+1)
	if err := svc.Upsert(context.Background(), access.Full(), "docs", tooMany); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("oversized upsert err = %v", err)
	}
	bigID := []point.Record{{ID: 1}, {ID: point.MaxID + 1}}
	if err := svc.Upsert(context.Background(), access.Full(), "docs", bigID); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("id above MaxID err = %v", err)
	}
	if called {
		t.Error("store must not be called for invalid upserts")
	}
}

func TestUpsert_WithoutPointWriter(t *testing.T) {
	svc := New(&mockRepo{})

	err := svc.Upsert(context.Background(), access.Full(), "docs", []point.Record{{ID: 1}})
	if !errors.Is(err, domain.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}
