package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vecquery/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return s.err(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index together with the point hashes it indexes
// (DD), so a collection created later under the same name starts empty.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return s.err(db.OpDropIndex, err)
	}
	return nil
}

// buildCreateArgs renders FT.CREATE arguments: a HASH index over one key
// prefix, then the schema.
func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH", "PREFIX", "1", idx.Prefix, "SCHEMA"}
	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}
	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	switch f.Type {
	case db.IndexFieldNumeric:
		if f.Sortable {
			return []string{f.Name, "NUMERIC", "SORTABLE"}, nil
		}
		return []string{f.Name, "NUMERIC"}, nil
	case db.IndexFieldTag:
		return []string{f.Name, "TAG", "SEPARATOR", db.TagSeparator, "CASESENSITIVE"}, nil
	case db.IndexFieldVector:
		return vectorFieldArgs(f)
	default:
		return nil, fmt.Errorf("field %s: unknown type %s", f.Name, f.Type)
	}
}

// vectorFieldArgs renders "name VECTOR HNSW <n> attrs...", where n counts the
// attribute tokens that follow.
func vectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, fmt.Errorf("vector field %s: DIM must be positive", f.Name)
	}
	metric := f.VectorDistance
	if metric == "" {
		metric = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(metric),
	}
	if f.VectorHNSW.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(f.VectorHNSW.M))
	}
	if f.VectorHNSW.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorHNSW.EFConstruct))
	}

	out := make([]string, 0, 4+len(attrs))
	out = append(out, f.Name, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(out, attrs...), nil
}
