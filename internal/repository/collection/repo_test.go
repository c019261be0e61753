package collection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		if key != "vecquery:collection:test-collection" {
			t.Errorf("unexpected key: %s", key)
		}
		if fields["shard_number"] != "2" {
			t.Errorf("shard_number = %q", fields["shard_number"])
		}
		return nil
	}
	var indexes []string
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		indexes = append(indexes, def.Name)
		return nil
	}

	if err := repo.Create(ctx, col); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"vecquery:test-collection:s0:idx", "vecquery:test-collection:s1:idx"}
	if strings.Join(indexes, ",") != strings.Join(want, ",") {
		t.Fatalf("indexes = %v, want %v", indexes, want)
	}
}

func TestCreate_ReplicasGetIndexes(t *testing.T) {
	primary := &mockStore{}
	replica := &mockStore{}
	repo := New(primary, replica)

	var replicaIndexes int
	replica.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		replicaIndexes++
		return nil
	}
	replica.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		t.Error("metadata must only be written to the primary")
		return nil
	}

	if err := repo.Create(context.Background(), testCollection(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replicaIndexes != 2 {
		t.Fatalf("replica indexes = %d, want 2", replicaIndexes)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetnxFn = func(_ context.Context, key, field, value string) (bool, error) {
		if key != "vecquery:collection:test-collection" || field != "name" || value != "test-collection" {
			t.Errorf("claim = %s %s %s", key, field, value)
		}
		return false, nil
	}
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		t.Error("metadata must not be overwritten")
		return nil
	}

	err := repo.Create(context.Background(), testCollection(t))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_MetadataWriteFailureReleasesClaim(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("OOM")
	}
	var deleted string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Error("indexes must not be created without metadata")
		return nil
	}

	if err := repo.Create(context.Background(), testCollection(t)); err == nil {
		t.Fatal("expected error")
	}
	if deleted != "vecquery:collection:test-collection" {
		t.Errorf("deleted = %q", deleted)
	}
}

func TestCreate_FTCreateError_Rollback(t *testing.T) {
	repo, ms := newTestRepo(t)

	calls := 0
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		calls++
		if calls == 2 {
			return errors.New("index limit reached")
		}
		return nil
	}
	var dropped []string
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = append(dropped, name)
		return nil
	}
	var delKey string
	ms.delFn = func(_ context.Context, key string) error {
		delKey = key
		return nil
	}

	err := repo.Create(context.Background(), testCollection(t))
	if err == nil || !strings.Contains(err.Error(), "index limit reached") {
		t.Fatalf("expected FT.CREATE error, got %v", err)
	}
	if len(dropped) != 1 || dropped[0] != "vecquery:test-collection:s0:idx" {
		t.Errorf("dropped = %v", dropped)
	}
	if delKey != "vecquery:collection:test-collection" {
		t.Errorf("unexpected DEL key: %s", delKey)
	}
}

func TestCreate_RollbackErrorJoined(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("index limit reached")
	}
	delErr := errors.New("del failed")
	ms.delFn = func(_ context.Context, _ string) error { return delErr }

	err := repo.Create(context.Background(), testCollection(t))
	if !errors.Is(err, delErr) {
		t.Fatalf("expected joined rollback error, got %v", err)
	}
}

// --- Index schema ---

func TestBuildIndex_Schema(t *testing.T) {
	col := testCollection(t)
	def, err := buildIndex(col, 1, HNSWConfig{M: 16, EFConstruct: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Prefix != "vecquery:test-collection:s1:" {
		t.Errorf("prefix = %q", def.Prefix)
	}

	byName := map[string]db.IndexField{}
	for _, f := range def.Fields {
		byName[f.Name] = f
	}
	if f := byName["__id"]; f.Type != db.IndexFieldNumeric || !f.Sortable {
		t.Errorf("__id = %+v", f)
	}
	if _, ok := byName["__shard_key"]; ok {
		t.Error("auto-sharded collection must not index __shard_key")
	}
	if f := byName["language"]; f.Type != db.IndexFieldTag {
		t.Errorf("language = %+v", f)
	}
	if f := byName["priority"]; f.Type != db.IndexFieldNumeric {
		t.Errorf("priority = %+v", f)
	}
	if f := byName["__v"]; f.Type != db.IndexFieldVector || f.VectorDim != testVectorDim || f.VectorDistance != db.DistanceCosine || f.VectorHNSW.M != 16 {
		t.Errorf("__v = %+v", f)
	}
	if f := byName["__v_img"]; f.VectorDistance != db.DistanceL2 {
		t.Errorf("manhattan vector must retrieve by L2, got %+v", f)
	}
}

func TestBuildShardIndexes_CustomSharding(t *testing.T) {
	col := domcol.Reconstruct("tenants", domcol.Config{
		Vectors:     []domcol.VectorParams{{Dim: 3, Distance: distance.Dot}},
		ShardNumber: 2,
		ShardKeys:   []shard.Key{shard.StringKey("a"), shard.StringKey("b")},
	}, 1, 1)

	defs, err := buildShardIndexes(col, HNSWConfig{M: 8, EFConstruct: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("expected 4 shard indexes, got %d", len(defs))
	}
	var hasKey bool
	for _, f := range defs[3].Fields {
		if f.Name == "__shard_key" && f.Type == db.IndexFieldTag {
			hasKey = true
		}
	}
	if !hasKey {
		t.Error("custom-sharded collection must index __shard_key")
	}
}

func TestEngineMetric(t *testing.T) {
	tests := []struct {
		in   distance.Distance
		want db.DistanceMetric
	}{
		{distance.Cosine, db.DistanceCosine},
		{distance.Dot, db.DistanceIP},
		{distance.Euclid, db.DistanceL2},
		{distance.Manhattan, db.DistanceL2},
	}
	for _, tt := range tests {
		if got := engineMetric(tt.in); got != tt.want {
			t.Errorf("engineMetric(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "vecquery:collection:test-collection" {
			t.Errorf("unexpected key: %s", key)
		}
		return testHash("test-collection", "1700000000000"), nil
	}

	col, err := repo.Get(context.Background(), "test-collection")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "test-collection" {
		t.Fatalf("expected name test-collection, got %s", col.Name())
	}
	if col.ShardNumber() != 2 {
		t.Fatalf("expected 2 shards, got %d", col.ShardNumber())
	}
	img, ok := col.Vector("img")
	if !ok || img.Dim != 4 || img.Distance != distance.Euclid {
		t.Fatalf("unexpected img vector: %+v", img)
	}
	if len(col.Fields()) != 1 || col.Fields()[0].Name() != "language" {
		t.Fatalf("unexpected fields: %+v", col.Fields())
	}
}

func TestGet_RoundTripShardKeys(t *testing.T) {
	col := domcol.Reconstruct("tenants", domcol.Config{
		Vectors:           []domcol.VectorParams{{Dim: 3, Distance: distance.Dot}},
		ShardNumber:       1,
		ShardKeys:         []shard.Key{shard.StringKey("eu"), shard.NumberKey(7)},
		ReplicationFactor: 2,
	}, 5, 3)

	h, err := collectionToHash(col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := collectionFromHash(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.ShardKeys()) != 2 || got.ShardKeys()[1] != shard.NumberKey(7) {
		t.Fatalf("shard keys = %v", got.ShardKeys())
	}
	if got.ReplicationFactor() != 2 || got.Revision() != 3 || got.CreatedAt() != 5 {
		t.Fatalf("unexpected collection: %+v", got.Config())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_CorruptMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		h := testHash("broken", "1")
		h["vectors_json"] = `[{"name":"","dim":3,"distance":"hamming"}]`
		return h, nil
	}

	if _, err := repo.Get(context.Background(), "broken"); err == nil {
		t.Fatal("expected error for unknown distance")
	}
}

// --- List ---

func TestList_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "vecquery:collection:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"vecquery:collection:alpha", "vecquery:collection:beta"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return []map[string]string{
			testHash("alpha", "1700000000002"),
			testHash("beta", "1700000000001"),
		}, nil
	}

	cols, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(cols))
	}
	if cols[0].Name() != "beta" || cols[1].Name() != "alpha" {
		t.Fatalf("expected creation order beta, alpha; got %s, %s", cols[0].Name(), cols[1].Name())
	}
}

func TestList_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	cols, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 0 {
		t.Fatalf("expected empty list, got %d", len(cols))
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return testHash("test-collection", "1700000000000"), nil
	}
	var dropped []string
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = append(dropped, name)
		return nil
	}

	if err := repo.Delete(context.Background(), "test-collection"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dropped) != 2 {
		t.Fatalf("expected 2 dropped indexes, got %v", dropped)
	}
}

func TestDelete_MissingIndexIgnored(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return testHash("test-collection", "1"), nil
	}
	ms.dropIndexFn = func(_ context.Context, _ string) error { return db.ErrIndexNotFound }

	if err := repo.Delete(context.Background(), "test-collection"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_DropFailureRestoresMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return testHash("test-collection", "1"), nil
	}
	ms.dropIndexFn = func(_ context.Context, _ string) error { return errors.New("busy") }
	var restored map[string]string
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		restored = fields
		return nil
	}

	if err := repo.Delete(context.Background(), "test-collection"); err == nil {
		t.Fatal("expected error on drop failure")
	}
	if restored["name"] != "test-collection" {
		t.Fatalf("metadata not restored: %v", restored)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- Distance ---

func TestDistance(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return testHash("test-collection", "1"), nil
	}
	ctx := context.Background()

	tests := []struct {
		name   string
		vector string
		want   distance.Distance
		ok     bool
	}{
		{"default", "", distance.Cosine, true},
		{"named", "img", distance.Euclid, true},
		{"missing", "audio", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := repo.Distance(ctx, "test-collection", tt.vector, access.Full())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.ok || d != tt.want {
				t.Fatalf("Distance(%q) = %s, %v; want %s, %v", tt.vector, d, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDistance_Forbidden(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		t.Error("store must not be read without access")
		return nil, nil
	}

	acc := access.Collections(map[string]access.Mode{"other": access.Read})
	_, _, err := repo.Distance(context.Background(), "test-collection", "", acc)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
