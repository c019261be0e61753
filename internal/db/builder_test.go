package db

import (
	"errors"
	"strings"
	"testing"
)

func mustBuild(t *testing.T, b *IndexBuilder) *IndexDefinition {
	t.Helper()
	def, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return def
}

func TestIndexBuilder_ShardSchema(t *testing.T) {
	idx := mustBuild(t, NewIndex("vecquery:books:s0:idx", "vecquery:books:s0:").
		SortKey("__id").
		Tag("__shard_key").
		Tag("genre").
		Numeric("year").
		Vector("__v", 768, DistanceL2, HNSW{M: 32, EFConstruct: 400}))

	if idx.Prefix != "vecquery:books:s0:" {
		t.Errorf("prefix = %q", idx.Prefix)
	}
	if len(idx.Fields) != 5 {
		t.Fatalf("fields count = %d, want 5", len(idx.Fields))
	}
	if f := idx.Fields[0]; f.Name != "__id" || f.Type != IndexFieldNumeric || !f.Sortable {
		t.Errorf("field[0] = %+v, want sortable __id NUMERIC", f)
	}
	if f := idx.Fields[2]; f.Type != IndexFieldTag {
		t.Errorf("field[2] = %+v, want TAG", f)
	}
	if f := idx.Fields[3]; f.Sortable {
		t.Error("plain numeric field must not be sortable")
	}
	if f := idx.Fields[4]; f.VectorDim != 768 || f.VectorHNSW.M != 32 || f.VectorHNSW.EFConstruct != 400 {
		t.Errorf("field[4] = %+v", f)
	}
}

func TestIndexBuilder_BuildCopiesDefinition(t *testing.T) {
	b := NewIndex("idx", "p:").Tag("a")
	first := mustBuild(t, b)
	b.Tag("b")
	if len(first.Fields) != 1 {
		t.Errorf("built definition changed after builder reuse: %+v", first.Fields)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
		wantErr string
	}{
		{"empty name", NewIndex("", "p:").Tag("x"), "index name is required"},
		{"empty prefix", NewIndex("idx", "").Tag("x"), "prefix is required"},
		{"no fields", NewIndex("idx", "p:"), "at least one field"},
		{"vector without dim", NewIndex("idx", "p:").Vector("v", 0, DistanceCosine, HNSW{}), "positive DIM"},
		{"invalid characters", NewIndex("idx with spaces", "p:").Tag("x"), "invalid characters"},
		{"duplicate field", NewIndex("idx", "p:").Tag("x").Numeric("x"), "duplicate field name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_ValidateSortableTag(t *testing.T) {
	idx := &IndexDefinition{
		Name:   "idx",
		Prefix: "p:",
		Fields: []IndexField{{Name: "genre", Type: IndexFieldTag, Sortable: true}},
	}
	if err := idx.Validate(); err == nil {
		t.Fatal("expected error for sortable tag")
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := mustBuild(t, NewIndex("my-idx", "doc:").
		SortKey("__id").
		Vector("__v", 512, DistanceIP, HNSW{}))

	want := "FT.CREATE my-idx PREFIX doc: SCHEMA __id NUMERIC SORTABLE __v VECTOR HNSW IP DIM 512"
	if s := idx.String(); s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"vecquery:books:s0:idx": true,
		"a-b_c":                 true,
		"":                      false,
		"a b":                   false,
		"a{b}":                  false,
	} {
		if got := IsValidIdentifier(s); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	got, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 0.5 || got[1] != -1.25 || got[2] != 3 {
		t.Errorf("got %v", got)
	}
	if len(EncodeVector(v)) != 12 {
		t.Errorf("encoded length = %d, want 12", len(EncodeVector(v)))
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	if _, err := DecodeVector("abc"); err == nil {
		t.Fatal("expected error")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := error(&Error{Op: OpSearch, Err: inner})
	if !errors.Is(err, inner) {
		t.Error("errors.Is must see the wrapped error")
	}
	if err.Error() != "FT.SEARCH: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
}
