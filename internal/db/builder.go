package db

import (
	"strconv"
	"strings"
)

// IndexBuilder assembles a shard index definition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition for the index name covering keys under prefix.
func NewIndex(name, prefix string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, Prefix: prefix}}
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric})
}

// SortKey adds a SORTABLE NUMERIC field. Scroll pages sort by it.
func (b *IndexBuilder) SortKey(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric, Sortable: true})
}

// Tag adds a case-sensitive TAG field.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag})
}

// Vector adds a FLOAT32 HNSW vector field.
func (b *IndexBuilder) Vector(name string, dim int, metric DistanceMetric, hnsw HNSW) *IndexBuilder {
	return b.add(IndexField{
		Name:           name,
		Type:           IndexFieldVector,
		VectorDim:      dim,
		VectorDistance: metric,
		VectorHNSW:     hnsw,
	})
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}

// String renders the definition as a compact FT.CREATE line for logs.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE ")
	sb.WriteString(idx.Name)
	sb.WriteString(" PREFIX ")
	sb.WriteString(idx.Prefix)
	sb.WriteString(" SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
		sb.WriteString(f.Type.String())
		if f.Type == IndexFieldVector {
			sb.WriteString(" HNSW ")
			sb.WriteString(string(f.VectorDistance))
			sb.WriteString(" DIM ")
			sb.WriteString(strconv.Itoa(f.VectorDim))
		}
		if f.Sortable {
			sb.WriteString(" SORTABLE")
		}
	}
	return sb.String()
}
