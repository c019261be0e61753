package request

import (
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

// VectorInput is a vector reference of the universal query API.
// Implementations: RawVector, PointInput, Document.
type VectorInput interface {
	isVectorInput()
}

// RawVector is an explicit vector.
type RawVector struct {
	Vector vector.Internal
}

func (RawVector) isVectorInput() {}

// PointInput references the stored vector of an existing point.
type PointInput struct {
	ID point.ID
}

func (PointInput) isVectorInput() {}

// Document is text turned into a dense vector by the inference provider.
type Document struct {
	Text string
	// Model overrides the configured embedding model when set.
	Model string
}

func (Document) isVectorInput() {}

// ContextInputPair is a ContextPair of unresolved inputs.
type ContextInputPair struct {
	Positive VectorInput
	Negative VectorInput
}

// Query is a universal query. Implementations: QueryNearest, QueryRecommend,
// QueryDiscover, QueryContext, QueryFusion.
type Query interface {
	isQuery()
}

// QueryNearest is a nearest-neighbour query.
type QueryNearest struct {
	Vector VectorInput
}

func (QueryNearest) isQuery() {}

// QueryRecommend is a best-score recommendation query.
type QueryRecommend struct {
	Positive []VectorInput
	Negative []VectorInput
}

func (QueryRecommend) isQuery() {}

// QueryDiscover is a discovery query.
type QueryDiscover struct {
	Target  VectorInput
	Context []ContextInputPair
}

func (QueryDiscover) isQuery() {}

// QueryContext is a context-only query.
type QueryContext struct {
	Pairs []ContextInputPair
}

func (QueryContext) isQuery() {}

// Fusion selects how prefetch results are merged.
type Fusion string

// Fusion methods.
const (
	// FusionRRF is reciprocal rank fusion.
	FusionRRF Fusion = "rrf"
)

// QueryFusion merges the results of the request's prefetches.
type QueryFusion struct {
	Fusion Fusion
}

func (QueryFusion) isQuery() {}

// Inputs returns every vector input referenced by q, in a stable order.
func Inputs(q Query) []VectorInput {
	var out []VectorInput
	add := func(in VectorInput) {
		if in != nil {
			out = append(out, in)
		}
	}
	switch v := q.(type) {
	case QueryNearest:
		add(v.Vector)
	case QueryRecommend:
		for _, in := range v.Positive {
			add(in)
		}
		for _, in := range v.Negative {
			add(in)
		}
	case QueryDiscover:
		add(v.Target)
		for _, p := range v.Context {
			add(p.Positive)
			add(p.Negative)
		}
	case QueryContext:
		for _, p := range v.Pairs {
			add(p.Positive)
			add(p.Negative)
		}
	}
	return out
}

// MapInputs returns a copy of q with every vector input replaced by fn(input).
func MapInputs(q Query, fn func(VectorInput) (VectorInput, error)) (Query, error) {
	var firstErr error
	m := func(in VectorInput) VectorInput {
		if in == nil || firstErr != nil {
			return in
		}
		out, err := fn(in)
		if err != nil {
			firstErr = err
			return in
		}
		return out
	}
	mapPairs := func(pairs []ContextInputPair) []ContextInputPair {
		out := make([]ContextInputPair, len(pairs))
		for i, p := range pairs {
			out[i] = ContextInputPair{Positive: m(p.Positive), Negative: m(p.Negative)}
		}
		return out
	}
	mapAll := func(ins []VectorInput) []VectorInput {
		out := make([]VectorInput, len(ins))
		for i, in := range ins {
			out[i] = m(in)
		}
		return out
	}

	var res Query
	switch v := q.(type) {
	case QueryNearest:
		res = QueryNearest{Vector: m(v.Vector)}
	case QueryRecommend:
		res = QueryRecommend{Positive: mapAll(v.Positive), Negative: mapAll(v.Negative)}
	case QueryDiscover:
		res = QueryDiscover{Target: m(v.Target), Context: mapPairs(v.Context)}
	case QueryContext:
		res = QueryContext{Pairs: mapPairs(v.Pairs)}
	default:
		res = q
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return res, nil
}
