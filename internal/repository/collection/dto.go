package collection

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// fieldRow is the JSON-serializable representation of a field for HSET.
type fieldRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type vectorRow struct {
	Name     string `json:"name"`
	Dim      int    `json:"dim"`
	Distance string `json:"distance"`
}

// collectionToHash converts a domain Collection to a map for HSET.
func collectionToHash(col collection.Collection) (map[string]string, error) {
	fields := make([]fieldRow, len(col.Fields()))
	for i, f := range col.Fields() {
		fields[i] = fieldRow{Name: f.Name(), Type: string(f.FieldType())}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	vectors := make([]vectorRow, len(col.Vectors()))
	for i, v := range col.Vectors() {
		vectors[i] = vectorRow{Name: v.Name, Dim: v.Dim, Distance: v.Distance.String()}
	}
	vectorsJSON, err := json.Marshal(vectors)
	if err != nil {
		return nil, fmt.Errorf("marshal vectors: %w", err)
	}

	keysJSON, err := json.Marshal(col.ShardKeys())
	if err != nil {
		return nil, fmt.Errorf("marshal shard keys: %w", err)
	}

	return map[string]string{
		"name":               col.Name(),
		"fields_json":        string(fieldsJSON),
		"vectors_json":       string(vectorsJSON),
		"shard_keys_json":    string(keysJSON),
		"shard_number":       strconv.Itoa(col.ShardNumber()),
		"replication_factor": strconv.Itoa(col.ReplicationFactor()),
		"created_at":         strconv.FormatInt(col.CreatedAt(), 10),
		"revision":           strconv.Itoa(col.Revision()),
	}, nil
}

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var fieldRows []fieldRow
	if s := m["fields_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &fieldRows); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	fields := make([]field.Field, len(fieldRows))
	for i, r := range fieldRows {
		fields[i] = field.Reconstruct(r.Name, field.Type(r.Type))
	}

	var vectorRows []vectorRow
	if err := json.Unmarshal([]byte(m["vectors_json"]), &vectorRows); err != nil {
		return collection.Collection{}, fmt.Errorf("unmarshal vectors: %w", err)
	}
	vectors := make([]collection.VectorParams, len(vectorRows))
	for i, r := range vectorRows {
		d, err := distance.Parse(r.Distance)
		if err != nil {
			return collection.Collection{}, fmt.Errorf("vector %q: %w", r.Name, err)
		}
		vectors[i] = collection.VectorParams{Name: r.Name, Dim: r.Dim, Distance: d}
	}

	var keys []shard.Key
	if s := m["shard_keys_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &keys); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal shard keys: %w", err)
		}
	}

	cfg := collection.Config{
		Vectors:           vectors,
		Fields:            fields,
		ShardKeys:         keys,
		ShardNumber:       atoiOr(m["shard_number"], 1),
		ReplicationFactor: atoiOr(m["replication_factor"], 1),
	}
	return collection.Reconstruct(m["name"], cfg, createdAt, atoiOr(m["revision"], 1)), nil
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
