package point

import (
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
	"github.com/kailas-cloud/vecquery/internal/explain"
)

// ID identifies a point within a collection.
type ID uint64

// MaxID is the largest storable ID. IDs are indexed as NUMERIC, a float64,
// which is exact up to 2^53.
const MaxID ID = 1 << 53

// Payload is the JSON-like metadata attached to a point.
// Values are strings or float64 numbers.
type Payload map[string]any

// ScoredPoint is a single search hit.
type ScoredPoint struct {
	ID          ID
	Version     uint64
	Score       float32
	Payload     Payload
	Vector      vector.Struct
	ShardKey    *shard.Key
	Explanation *explain.ScoreExplanation
}

// Record is a stored point returned by retrieve and scroll.
type Record struct {
	ID       ID
	Payload  Payload
	Vector   vector.Struct
	ShardKey *shard.Key
}

// WithPayload selects payload fields to return.
type WithPayload struct {
	Enabled bool
	// Include restricts the returned keys; empty means all.
	Include []string
}

// Apply projects p according to the selector.
func (w WithPayload) Apply(p Payload) Payload {
	if !w.Enabled || p == nil {
		return nil
	}
	if len(w.Include) == 0 {
		out := make(Payload, len(p))
		for k, v := range p {
			out[k] = v
		}
		return out
	}
	out := make(Payload, len(w.Include))
	for _, k := range w.Include {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}

// WithVector selects stored vectors to return.
type WithVector struct {
	Enabled bool
	// Names restricts the returned named vectors; empty means all.
	Names []string
}

// IsRequested reports whether any vector is returned.
func (w *WithVector) IsRequested() bool {
	return w != nil && w.Enabled
}

// Apply projects s according to the selector. A nil selector strips vectors.
func (w *WithVector) Apply(s vector.Struct) vector.Struct {
	if !w.IsRequested() {
		return nil
	}
	return vector.Select(s, w.Names)
}
