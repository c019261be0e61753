package db

import (
	"errors"
	"fmt"
)

// DistanceMetric is the vector similarity metric of an HNSW field.
type DistanceMetric string

const (
	// DistanceL2 is squared Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance (1 - dot).
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance (1 - cosine).
	DistanceCosine DistanceMetric = "COSINE"
)

// TagSeparator splits multi-valued TAG fields. Keyword payload values may
// contain commas, so a control character is used instead.
const TagSeparator = "\x1f"

// IndexFieldType enumerates the field types a shard index schema can hold.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a case-sensitive tag field.
	IndexFieldTag
	// IndexFieldVector is an HNSW vector field.
	IndexFieldVector
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("IndexFieldType(%d)", int(t))
	}
}

// HNSW holds graph construction parameters. Zero values leave the engine
// defaults in place.
type HNSW struct {
	M           int // max edges per node
	EFConstruct int // build-time candidate list size
}

// IndexField is one attribute of a shard index schema.
type IndexField struct {
	Name     string
	Type     IndexFieldType
	Sortable bool // NUMERIC only, usable in SORTBY

	// Vector fields only.
	VectorDim      int
	VectorDistance DistanceMetric
	VectorHNSW     HNSW
}

// IndexDefinition is the FT.CREATE schema of one physical shard: a HASH index
// over every key under Prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if idx.Prefix == "" {
		return errors.New("index prefix is required")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Sortable && f.Type != IndexFieldNumeric {
			return fmt.Errorf("field %s: only NUMERIC fields can be SORTABLE", f.Name)
		}
		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		}
	}
	return nil
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
