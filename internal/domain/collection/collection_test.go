package collection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

func singleVector(dim int) Config {
	return Config{Vectors: []VectorParams{{Dim: dim, Distance: distance.Cosine}}}
}

func TestNew_Valid(t *testing.T) {
	f, err := field.New("language", field.Keyword)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	before := time.Now().UnixMilli()

	cfg := singleVector(1024)
	cfg.Fields = []field.Field{f}
	col, err := New("my-collection", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := time.Now().UnixMilli()

	if col.Name() != "my-collection" {
		t.Errorf("Name() = %q, want %q", col.Name(), "my-collection")
	}
	if col.DefaultVector().Dim != 1024 {
		t.Errorf("DefaultVector().Dim = %d, want 1024", col.DefaultVector().Dim)
	}
	if col.ShardNumber() != 1 || col.ReplicationFactor() != 1 {
		t.Errorf("defaults: shards=%d replicas=%d", col.ShardNumber(), col.ReplicationFactor())
	}
	if col.CreatedAt() < before || col.CreatedAt() > after {
		t.Errorf("CreatedAt() = %d, want between %d and %d", col.CreatedAt(), before, after)
	}
	if col.Revision() != 1 {
		t.Errorf("Revision() = %d", col.Revision())
	}
}

func TestNew_EmptyName(t *testing.T) {
	_, err := New("", singleVector(4))
	if err == nil {
		t.Fatal("expected error for empty name")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want 'required'", err)
	}
}

func TestNew_NameTooLong(t *testing.T) {
	_, err := New(strings.Repeat("a", 65), singleVector(4))
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("error = %v, want 'too long'", err)
	}
}

func TestNew_InvalidNameChars(t *testing.T) {
	names := []string{"has space", "слово", "col.name", "col/name", "col@name"}
	for _, name := range names {
		if _, err := New(name, singleVector(4)); err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}
}

func TestNew_VectorValidation(t *testing.T) {
	tests := []struct {
		name    string
		vectors []VectorParams
		want    string
	}{
		{"none", nil, "at least one"},
		{"zero dim", []VectorParams{{Dim: 0, Distance: distance.Dot}}, "positive"},
		{"bad distance", []VectorParams{{Dim: 4}}, "invalid distance"},
		{"duplicate", []VectorParams{
			{Name: "a", Dim: 4, Distance: distance.Dot},
			{Name: "a", Dim: 8, Distance: distance.Dot},
		}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("col", Config{Vectors: tt.vectors})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestNew_DuplicateFieldNames(t *testing.T) {
	cfg := singleVector(4)
	cfg.Fields = []field.Field{field.Reconstruct("lang", field.Keyword), field.Reconstruct("lang", field.Numeric)}
	_, err := New("col", cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %v, want 'duplicate'", err)
	}
}

func TestNew_TooManyShards(t *testing.T) {
	cfg := singleVector(4)
	cfg.ShardNumber = MaxShards + 1
	if _, err := New("col", cfg); err == nil {
		t.Fatal("expected error for too many shards")
	}
}

func TestNew_InvalidShardKey(t *testing.T) {
	cfg := singleVector(4)
	cfg.ShardKeys = []shard.Key{shard.StringKey("")}
	if _, err := New("col", cfg); !errors.Is(err, domain.ErrInvalidShardKey) {
		t.Errorf("err = %v, want ErrInvalidShardKey", err)
	}
}

func TestVectors_SortedByName(t *testing.T) {
	col, err := New("col", Config{Vectors: []VectorParams{
		{Name: "text", Dim: 4, Distance: distance.Dot},
		{Name: "image", Dim: 8, Distance: distance.Euclid},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Vectors()[0].Name != "image" {
		t.Errorf("Vectors()[0] = %+v", col.Vectors()[0])
	}
	if col.DefaultVector().Name != "image" {
		t.Errorf("DefaultVector() = %+v", col.DefaultVector())
	}
	v, ok := col.Vector("text")
	if !ok || v.Distance != distance.Dot {
		t.Errorf("Vector(text) = %+v, %v", v, ok)
	}
}

func TestReconstruct(t *testing.T) {
	col := Reconstruct("old-col", singleVector(768), 1700000000000, 3)
	if col.Name() != "old-col" || col.DefaultVector().Dim != 768 {
		t.Errorf("col = %+v", col)
	}
	if col.CreatedAt() != 1700000000000 || col.Revision() != 3 {
		t.Errorf("CreatedAt/Revision = %d/%d", col.CreatedAt(), col.Revision())
	}
}

func TestHasField(t *testing.T) {
	cfg := singleVector(4)
	cfg.Fields = []field.Field{field.Reconstruct("language", field.Keyword), field.Reconstruct("priority", field.Numeric)}
	col := Reconstruct("col", cfg, 0, 1)

	if !col.HasField("language", field.Keyword) {
		t.Error("expected language keyword field")
	}
	if col.HasField("language", field.Numeric) {
		t.Error("language is not numeric")
	}
	if _, ok := col.FieldByName("priority"); !ok {
		t.Error("FieldByName(priority) not found")
	}
}

func TestShards_Auto(t *testing.T) {
	cfg := singleVector(4)
	cfg.ShardNumber = 3
	col := Reconstruct("col", cfg, 0, 1)

	got, err := col.Shards(shard.All())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[2] != 2 {
		t.Errorf("Shards(All) = %v", got)
	}
	if _, err := col.Shards(shard.ForKeys(shard.StringKey("x"))); !errors.Is(err, domain.ErrInvalidShardKey) {
		t.Errorf("keys on auto sharding err = %v", err)
	}
	if _, err := col.Shards(shard.ForShardID(5)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing shard id err = %v", err)
	}
	if col.ShardKeyOf(0) != nil {
		t.Error("auto sharding has no shard keys")
	}
}

func TestShards_Custom(t *testing.T) {
	cfg := singleVector(4)
	cfg.ShardNumber = 2
	cfg.ShardKeys = []shard.Key{shard.StringKey("eu"), shard.StringKey("us")}
	col := Reconstruct("col", cfg, 0, 1)

	if col.TotalShards() != 4 {
		t.Fatalf("TotalShards() = %d", col.TotalShards())
	}
	got, err := col.Shards(shard.ForKeys(shard.StringKey("us")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("Shards(us) = %v", got)
	}
	if k := col.ShardKeyOf(3); k == nil || *k != shard.StringKey("us") {
		t.Errorf("ShardKeyOf(3) = %v", k)
	}
	if _, err := col.Shards(shard.ForKeys(shard.StringKey("asia"))); !errors.Is(err, domain.ErrInvalidShardKey) {
		t.Errorf("unknown key err = %v", err)
	}
}

func TestPlaceShard(t *testing.T) {
	cfg := singleVector(4)
	cfg.ShardNumber = 2
	cfg.ShardKeys = []shard.Key{shard.StringKey("eu"), shard.StringKey("us")}
	col := Reconstruct("col", cfg, 0, 1)

	us := shard.StringKey("us")
	got, err := col.PlaceShard(5, &us)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("PlaceShard(5, us) = %d, want 3", got)
	}
	if _, err := col.PlaceShard(5, nil); !errors.Is(err, domain.ErrInvalidShardKey) {
		t.Errorf("missing key err = %v", err)
	}

	auto := Reconstruct("auto", Config{Vectors: cfg.Vectors, ShardNumber: 3}, 0, 1)
	if got, _ := auto.PlaceShard(7, nil); got != 1 {
		t.Errorf("auto PlaceShard(7) = %d, want 1", got)
	}
}
