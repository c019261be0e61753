package chi

import (
	"time"

	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
	"github.com/kailas-cloud/vecquery/internal/explain"
)

// Response is the envelope of every successful API response.
type Response struct {
	Result any             `json:"result"`
	Status string          `json:"status"`
	Usage  *hardware.Usage `json:"usage,omitempty"`
	Time   float64         `json:"time"`
}

// ScoredPoint is a search hit on the wire.
type ScoredPoint struct {
	ID          point.ID                  `json:"id"`
	Version     uint64                    `json:"version"`
	Score       float32                   `json:"score"`
	Payload     point.Payload             `json:"payload,omitempty"`
	Vector      any                       `json:"vector,omitempty"`
	ShardKey    *shard.Key                `json:"shard_key,omitempty"`
	Explanation *explain.ScoreExplanation `json:"explanation,omitempty"`
}

// Record is a stored point on the wire.
type Record struct {
	ID       point.ID      `json:"id"`
	Payload  point.Payload `json:"payload,omitempty"`
	Vector   any           `json:"vector,omitempty"`
	ShardKey *shard.Key    `json:"shard_key,omitempty"`
}

// PointGroup is one group of a grouped search.
type PointGroup struct {
	ID   any           `json:"id"`
	Hits []ScoredPoint `json:"hits"`
}

// GroupsResult is the result of a grouped search.
type GroupsResult struct {
	Groups []PointGroup `json:"groups"`
}

// CountResult is the result of a count.
type CountResult struct {
	Count int `json:"count"`
}

// ScrollResult is one page of a scroll.
type ScrollResult struct {
	Points         []Record  `json:"points"`
	NextPageOffset *point.ID `json:"next_page_offset"`
}

// MatrixPair is one entry of the pairs rendering of a search matrix.
type MatrixPair struct {
	A     point.ID `json:"a"`
	B     point.ID `json:"b"`
	Score float32  `json:"score"`
}

// MatrixPairs is the pairs rendering of a search matrix.
type MatrixPairs struct {
	Pairs []MatrixPair `json:"pairs"`
}

// MatrixOffsets is the coordinate rendering of a search matrix.
type MatrixOffsets struct {
	OffsetsRow []uint32   `json:"offsets_row"`
	OffsetsCol []uint32   `json:"offsets_col"`
	Scores     []float32  `json:"scores"`
	IDs        []point.ID `json:"ids"`
}

// VectorParams describes one collection vector.
type VectorParams struct {
	Name     string `json:"name,omitempty"`
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

// Field describes one indexed payload field.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Collection is a collection description.
type Collection struct {
	Name              string         `json:"name"`
	Vectors           []VectorParams `json:"vectors"`
	Fields            []Field        `json:"fields,omitempty"`
	ShardNumber       int            `json:"shard_number"`
	ShardKeys         []shard.Key    `json:"shard_keys,omitempty"`
	ReplicationFactor int            `json:"replication_factor"`
	CreatedAt         time.Time      `json:"created_at"`
	Revision          int            `json:"revision"`
}

// internalJSON renders one vector: dense and multi-dense as arrays, sparse as
// {indices, values}.
func internalJSON(v vector.Internal) any {
	switch t := v.(type) {
	case vector.Dense:
		return []float32(t)
	case vector.MultiDense:
		return [][]float32(t)
	case vector.Sparse:
		return sparseJSON{Indices: t.Indices, Values: t.Values}
	default:
		return nil
	}
}

// vectorJSON renders a stored vector: an array for the default vector or an
// object of named vectors.
func vectorJSON(s vector.Struct) any {
	switch t := s.(type) {
	case vector.Single:
		return []float32(t)
	case vector.Multi:
		return [][]float32(t)
	case vector.Named:
		out := make(map[string]any, len(t))
		for name, v := range t {
			out[name] = internalJSON(v)
		}
		return out
	default:
		return nil
	}
}

func scoredPointsToJSON(pts []point.ScoredPoint) []ScoredPoint {
	out := make([]ScoredPoint, len(pts))
	for i, p := range pts {
		out[i] = ScoredPoint{
			ID:          p.ID,
			Version:     p.Version,
			Score:       p.Score,
			Payload:     p.Payload,
			Vector:      vectorJSON(p.Vector),
			ShardKey:    p.ShardKey,
			Explanation: p.Explanation,
		}
	}
	return out
}

func batchToJSON(batch [][]point.ScoredPoint) [][]ScoredPoint {
	out := make([][]ScoredPoint, len(batch))
	for i, pts := range batch {
		out[i] = scoredPointsToJSON(pts)
	}
	return out
}

func recordsToJSON(recs []point.Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = Record{ID: r.ID, Payload: r.Payload, Vector: vectorJSON(r.Vector), ShardKey: r.ShardKey}
	}
	return out
}

func groupsToJSON(g result.GroupsResult) GroupsResult {
	out := GroupsResult{Groups: make([]PointGroup, len(g.Groups))}
	for i, grp := range g.Groups {
		out.Groups[i] = PointGroup{ID: grp.ID, Hits: scoredPointsToJSON(grp.Hits)}
	}
	return out
}

func pairsToJSON(m result.SearchMatrix) MatrixPairs {
	pairs := m.Pairs()
	out := MatrixPairs{Pairs: make([]MatrixPair, len(pairs))}
	for i, p := range pairs {
		out.Pairs[i] = MatrixPair{A: p.A, B: p.B, Score: p.Score}
	}
	return out
}

func offsetsToJSON(m result.SearchMatrix) MatrixOffsets {
	o := m.Offsets()
	out := MatrixOffsets{OffsetsRow: o.OffsetsRow, OffsetsCol: o.OffsetsCol, Scores: o.Scores, IDs: o.IDs}
	if out.OffsetsRow == nil {
		out.OffsetsRow, out.OffsetsCol, out.Scores = []uint32{}, []uint32{}, []float32{}
	}
	if out.IDs == nil {
		out.IDs = []point.ID{}
	}
	return out
}

func collectionToJSON(c domcol.Collection) Collection {
	vectors := make([]VectorParams, len(c.Vectors()))
	for i, v := range c.Vectors() {
		vectors[i] = VectorParams{Name: v.Name, Size: v.Dim, Distance: v.Distance.String()}
	}
	var fields []Field
	for _, f := range c.Fields() {
		fields = append(fields, Field{Name: f.Name(), Type: string(f.FieldType())})
	}
	return Collection{
		Name:              c.Name(),
		Vectors:           vectors,
		Fields:            fields,
		ShardNumber:       c.ShardNumber(),
		ShardKeys:         c.ShardKeys(),
		ReplicationFactor: c.ReplicationFactor(),
		CreatedAt:         time.UnixMilli(c.CreatedAt()).UTC(),
		Revision:          c.Revision(),
	}
}
