package collection

import (
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

// buildShardIndexes creates one IndexDefinition per physical shard.
func buildShardIndexes(col domcol.Collection, hnsw HNSWConfig) ([]*db.IndexDefinition, error) {
	defs := make([]*db.IndexDefinition, col.TotalShards())
	for i := range defs {
		def, err := buildIndex(col, uint32(i), hnsw)
		if err != nil {
			return nil, err
		}
		defs[i] = def
	}
	return defs, nil
}

func buildIndex(col domcol.Collection, shard uint32, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(domain.ShardIndex(col.Name(), shard), domain.ShardPrefix(col.Name(), shard)).
		SortKey(domain.FieldID)

	if col.IsCustomSharded() {
		b.Tag(domain.FieldShardKey)
	}

	for _, f := range col.Fields() {
		switch f.FieldType() {
		case field.Keyword, field.Bool:
			b.Tag(f.Name())
		case field.Numeric:
			b.Numeric(f.Name())
		default:
			return nil, fmt.Errorf("unknown field type: %s", f.FieldType())
		}
	}

	graph := db.HNSW{M: hnsw.M, EFConstruct: hnsw.EFConstruct}
	for _, v := range col.Vectors() {
		b.Vector(domain.VectorField(v.Name), v.Dim, engineMetric(v.Distance), graph)
	}

	return b.Build()
}

// engineMetric maps a collection metric to the index metric used for candidate
// retrieval. Manhattan has no engine equivalent and retrieves by L2; candidates
// are rescored exactly with the collection metric.
func engineMetric(d distance.Distance) db.DistanceMetric {
	switch d {
	case distance.Cosine:
		return db.DistanceCosine
	case distance.Dot:
		return db.DistanceIP
	case distance.Euclid, distance.Manhattan:
		return db.DistanceL2
	default:
		return db.DistanceCosine
	}
}
