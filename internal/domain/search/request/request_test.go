package request

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

func TestCoreSearchRequest_Validate_Defaults(t *testing.T) {
	r := CoreSearchRequest{Query: Nearest{Vector: vector.Dense{1, 2}}}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", r.Limit, DefaultLimit)
	}
}

func TestCoreSearchRequest_Validate_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  CoreSearchRequest
	}{
		{"no query", CoreSearchRequest{}},
		{"empty vector", CoreSearchRequest{Query: Nearest{Vector: vector.Dense{}}}},
		{"negative limit", CoreSearchRequest{Query: Nearest{Vector: vector.Dense{1}}, Limit: -1}},
		{"huge offset", CoreSearchRequest{Query: Nearest{Vector: vector.Dense{1}}, Offset: MaxOffset + 1}},
		{"recommend without positives", CoreSearchRequest{Query: RecommendBestScore{}}},
		{"discover without target", CoreSearchRequest{Query: Discover{}}},
		{"context without pairs", CoreSearchRequest{Query: Context{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, domain.ErrBadRequest) {
				t.Errorf("Validate() = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestGroupRequest_Validate(t *testing.T) {
	g := GroupRequest{GroupBy: "author"}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.GroupSize != 1 || g.Limit != DefaultGroups {
		t.Errorf("defaults = %d/%d", g.GroupSize, g.Limit)
	}
	if err := (&GroupRequest{}).Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("missing group_by err = %v", err)
	}
	if err := (&GroupRequest{GroupBy: "a", GroupSize: MaxGroupSize + 1}).Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("oversized group err = %v", err)
	}
}

func TestSearchGroupsRequest_GroupRequest(t *testing.T) {
	threshold := float32(0.5)
	r := SearchGroupsRequest{
		Search: CoreSearchRequest{
			Query:          Nearest{Using: "img", Vector: vector.Dense{1, 0}},
			ScoreThreshold: &threshold,
		},
		GroupBy: "author", GroupSize: 2, Limit: 3,
	}
	g, err := r.GroupRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Query.Using != "img" || g.GroupBy != "author" || g.GroupSize != 2 || g.Limit != 3 {
		t.Errorf("group request = %+v", g)
	}
	n, ok := g.Query.Query.(QueryNearest)
	if !ok {
		t.Fatalf("query = %T, want QueryNearest", g.Query.Query)
	}
	if _, ok := n.Vector.(RawVector); !ok {
		t.Errorf("vector input = %T", n.Vector)
	}
	if g.Query.ScoreThreshold == nil || *g.Query.ScoreThreshold != 0.5 {
		t.Error("score threshold not carried over")
	}

	r.Search.Query = Context{Pairs: []ContextPair{{}}}
	if _, err := r.GroupRequest(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("non-nearest err = %v", err)
	}
}

func TestRecommendGroupsRequest_GroupRequest(t *testing.T) {
	r := RecommendGroupsRequest{
		Positive: []VectorInput{PointInput{ID: 1}},
		Negative: []VectorInput{PointInput{ID: 2}},
		GroupBy:  "author",
	}
	g, err := r.GroupRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, ok := g.Query.Query.(QueryRecommend)
	if !ok || len(rec.Positive) != 1 || len(rec.Negative) != 1 {
		t.Errorf("query = %#v", g.Query.Query)
	}

	if _, err := (RecommendGroupsRequest{GroupBy: "a"}).GroupRequest(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("no positives err = %v", err)
	}
}

func TestDiscoverRequest_Selector(t *testing.T) {
	if !(DiscoverRequest{}).Selector().IsAll() {
		t.Error("missing shard key should target all shards")
	}
	sel := DiscoverRequest{ShardKeys: []shard.Key{shard.StringKey("eu")}}.Selector()
	if sel != shard.ForKeys(shard.StringKey("eu")) {
		t.Errorf("selector = %v", sel)
	}
}

func TestDiscoverRequest_CollectionQuery(t *testing.T) {
	pair := ContextInputPair{Positive: PointInput{ID: 1}, Negative: PointInput{ID: 2}}

	withTarget := DiscoverRequest{Target: PointInput{ID: 3}, Context: []ContextInputPair{pair}, Limit: 5}
	q := withTarget.CollectionQuery()
	if _, ok := q.Query.(QueryDiscover); !ok || q.Limit != 5 {
		t.Errorf("with target = %#v", q)
	}

	contextOnly := DiscoverRequest{Context: []ContextInputPair{pair}}
	if _, ok := contextOnly.CollectionQuery().Query.(QueryContext); !ok {
		t.Errorf("without target = %T", contextOnly.CollectionQuery().Query)
	}
}

func TestCollectionQueryRequest_Validate(t *testing.T) {
	r := CollectionQueryRequest{Query: QueryFusion{Fusion: FusionRRF}}
	if err := r.Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("fusion without prefetch err = %v", err)
	}

	r = CollectionQueryRequest{
		Query:    QueryFusion{Fusion: FusionRRF},
		Prefetch: []Prefetch{{Query: QueryNearest{Vector: RawVector{Vector: vector.Dense{1}}}}},
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Prefetch[0].Limit != DefaultLimit {
		t.Errorf("prefetch default limit = %d", r.Prefetch[0].Limit)
	}
}

func TestCollectionQueryRequest_Validate_Depth(t *testing.T) {
	p := Prefetch{}
	for i := 0; i < MaxPrefetchDepth; i++ {
		p = Prefetch{Prefetch: []Prefetch{p}}
	}
	r := CollectionQueryRequest{Prefetch: []Prefetch{p}}
	if err := r.Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("deep prefetch err = %v", err)
	}
}

func TestMapAllInputs(t *testing.T) {
	r := CollectionQueryRequest{
		Query: QueryNearest{Vector: Document{Text: "hello"}},
		Prefetch: []Prefetch{{
			Query: QueryRecommend{Positive: []VectorInput{Document{Text: "a"}, PointInput{ID: 4}}},
		}},
	}
	if got := len(r.AllInputs()); got != 3 {
		t.Fatalf("AllInputs() len = %d, want 3", got)
	}

	mapped, err := r.MapAllInputs(func(in VectorInput) (VectorInput, error) {
		if d, ok := in.(Document); ok {
			return RawVector{Vector: vector.Dense{float32(len(d.Text))}}, nil
		}
		return in, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range mapped.AllInputs() {
		if _, ok := in.(Document); ok {
			t.Error("document input was not replaced")
		}
	}
	if _, ok := r.Query.(QueryNearest).Vector.(Document); !ok {
		t.Error("MapAllInputs must not modify the receiver")
	}
}

func TestMapAllInputs_Error(t *testing.T) {
	r := CollectionQueryRequest{Query: QueryNearest{Vector: Document{Text: "x"}}}
	boom := errors.New("boom")
	if _, err := r.MapAllInputs(func(VectorInput) (VectorInput, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestScrollRequest_Validate(t *testing.T) {
	r := ScrollRequest{}
	if err := r.Validate(); err != nil || r.Limit != DefaultScrollLimit {
		t.Errorf("Validate() = %v, limit %d", err, r.Limit)
	}
	r = ScrollRequest{Limit: MaxLimit + 1}
	if err := r.Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}

	last := point.MaxID
	r = ScrollRequest{Offset: &last}
	if err := r.Validate(); err != nil {
		t.Errorf("offset at MaxID: %v", err)
	}
	beyond := point.MaxID + 1
	r = ScrollRequest{Offset: &beyond}
	if err := r.Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("offset beyond MaxID: err = %v", err)
	}
}

func TestPointRequest_Validate(t *testing.T) {
	r := PointRequest{IDs: make([]point.ID, MaxRetrieveIDs+1)}
	if err := r.Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestSearchMatrixRequest_Validate(t *testing.T) {
	r := SearchMatrixRequest{}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Sample != DefaultMatrixSize || r.Limit != DefaultMatrixLimit {
		t.Errorf("defaults = %d/%d", r.Sample, r.Limit)
	}
	r = SearchMatrixRequest{Sample: 2, Limit: 5}
	if err := r.Validate(); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("limit > sample err = %v", err)
	}
}
