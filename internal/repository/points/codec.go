package points

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

// candidate is a point read from a shard, scored in Go.
type candidate struct {
	id       point.ID
	shardKey *shard.Key
	payload  point.Payload
	vectors  map[string][]float32
	score    float32
}

// vectorStruct renders the loaded vectors in the collection's vector shape.
func (c candidate) vectorStruct(col domcol.Collection) vector.Struct {
	if len(c.vectors) == 0 {
		return nil
	}
	if vs := col.Vectors(); len(vs) == 1 && vs[0].Name == vector.DefaultName {
		if v, ok := c.vectors[vector.DefaultName]; ok {
			return vector.Single(v)
		}
		return nil
	}
	named := make(vector.Named, len(c.vectors))
	for name, v := range c.vectors {
		named[name] = vector.Dense(v)
	}
	return named
}

func (c candidate) scored(col domcol.Collection, wp point.WithPayload, wv *point.WithVector) point.ScoredPoint {
	return point.ScoredPoint{
		ID:       c.id,
		Score:    c.score,
		Payload:  wp.Apply(c.payload),
		Vector:   wv.Apply(c.vectorStruct(col)),
		ShardKey: c.shardKey,
	}
}

func (c candidate) record(col domcol.Collection, wp point.WithPayload, wv *point.WithVector) point.Record {
	return point.Record{
		ID:       c.id,
		Payload:  wp.Apply(c.payload),
		Vector:   wv.Apply(c.vectorStruct(col)),
		ShardKey: c.shardKey,
	}
}

func candidateID(c candidate) point.ID { return c.id }

// returnFields lists the hash fields a read needs: identity, payload and the
// named vectors.
func returnFields(vectorNames []string) []string {
	fields := []string{domain.FieldID, domain.FieldPayload, domain.FieldShardKey}
	for _, name := range vectorNames {
		if f := domain.VectorField(name); !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// loadVectors lists the vectors a read must load: the scoring vectors plus
// whatever the caller asked to get back.
func loadVectors(col domcol.Collection, wv *point.WithVector, scoring ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if _, ok := col.Vector(name); ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range scoring {
		add(name)
	}
	if wv.IsRequested() {
		if len(wv.Names) == 0 {
			for _, v := range col.Vectors() {
				add(v.Name)
			}
		}
		for _, name := range wv.Names {
			add(name)
		}
	}
	return out
}

// decodePoint hydrates a candidate from the hash fields of a point and
// accounts the bytes read.
func decodePoint(col domcol.Collection, fields map[string]string, hw *hardware.Acc) (candidate, error) {
	id, err := strconv.ParseUint(fields[domain.FieldID], 10, 64)
	if err != nil {
		return candidate{}, fmt.Errorf("invalid %s %q: %w", domain.FieldID, fields[domain.FieldID], err)
	}
	c := candidate{id: point.ID(id)}

	if raw, ok := fields[domain.FieldPayload]; ok && raw != "" {
		hw.AddPayloadIORead(len(raw))
		if err := json.Unmarshal([]byte(raw), &c.payload); err != nil {
			return candidate{}, fmt.Errorf("point %d payload: %w", id, err)
		}
	}

	if raw, ok := fields[domain.FieldShardKey]; ok && raw != "" {
		var k shard.Key
		if err := json.Unmarshal([]byte(raw), &k); err != nil {
			return candidate{}, fmt.Errorf("point %d shard key: %w", id, err)
		}
		c.shardKey = &k
	}

	for _, v := range col.Vectors() {
		raw, ok := fields[domain.VectorField(v.Name)]
		if !ok || raw == "" {
			continue
		}
		hw.AddVectorIORead(len(raw))
		vec, err := db.DecodeVector(raw)
		if err != nil {
			return candidate{}, fmt.Errorf("point %d vector %q: %w", id, v.Name, err)
		}
		if c.vectors == nil {
			c.vectors = make(map[string][]float32, len(col.Vectors()))
		}
		c.vectors[v.Name] = vec
	}
	return c, nil
}

func decodeEntries(col domcol.Collection, entries []db.SearchEntry, hw *hardware.Acc) ([]candidate, error) {
	out := make([]candidate, 0, len(entries))
	for _, e := range entries {
		c, err := decodePoint(col, e.Fields, hw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// encodePoint renders a point as the hash stored in its shard.
func encodePoint(col domcol.Collection, shardID uint32, p point.Record) (db.HashSetItem, error) {
	fields := map[string]string{
		domain.FieldID: strconv.FormatUint(uint64(p.ID), 10),
	}

	if p.ShardKey != nil {
		raw, err := json.Marshal(p.ShardKey)
		if err != nil {
			return db.HashSetItem{}, fmt.Errorf("shard key: %w", err)
		}
		fields[domain.FieldShardKey] = string(raw)
	}

	if p.Payload != nil {
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return db.HashSetItem{}, fmt.Errorf("payload: %w", err)
		}
		fields[domain.FieldPayload] = string(raw)
		for _, f := range col.Fields() {
			if v, ok := indexValue(f.FieldType(), p.Payload[f.Name()]); ok {
				fields[f.Name()] = v
			}
		}
	}

	vectors, err := denseVectors(p.Vector)
	if err != nil {
		return db.HashSetItem{}, err
	}
	for name, vec := range vectors {
		params, ok := col.Vector(name)
		if !ok {
			return db.HashSetItem{}, fmt.Errorf("%w: vector %q not in collection %q", domain.ErrBadRequest, name, col.Name())
		}
		if len(vec) != params.Dim {
			return db.HashSetItem{}, fmt.Errorf("%w: vector %q expects %d dimensions, got %d",
				domain.ErrVectorDimMismatch, name, params.Dim, len(vec))
		}
		fields[domain.VectorField(name)] = db.EncodeVector(vec)
	}

	return db.HashSetItem{Key: domain.PointKey(col.Name(), shardID, uint64(p.ID)), Fields: fields}, nil
}

func denseVectors(s vector.Struct) (map[string][]float32, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case vector.Single:
		return map[string][]float32{vector.DefaultName: v}, nil
	case vector.Named:
		out := make(map[string][]float32, len(v))
		for name, in := range v {
			d, ok := vector.AsDense(in)
			if !ok {
				return nil, fmt.Errorf("%w: vector %q: only dense vectors are stored", domain.ErrBadRequest, name)
			}
			out[name] = d
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: only dense vectors are stored", domain.ErrBadRequest)
	}
}

// indexValue renders a payload value for an indexed field. Values of the
// wrong type are left out of the index.
func indexValue(ft field.Type, v any) (string, bool) {
	switch ft {
	case field.Keyword:
		switch x := v.(type) {
		case string:
			return x, x != ""
		case []any:
			parts := make([]string, 0, len(x))
			for _, e := range x {
				if s, ok := e.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, db.TagSeparator), len(parts) > 0
		}
	case field.Bool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), true
		}
	case field.Numeric:
		switch x := v.(type) {
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case int:
			return strconv.Itoa(x), true
		case int64:
			return strconv.FormatInt(x, 10), true
		}
	}
	return "", false
}
