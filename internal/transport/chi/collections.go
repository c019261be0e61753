package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	gochi "github.com/go-chi/chi/v5"

	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

type vectorParamsJSON struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

// vectorsConfigJSON is {"size", "distance"} for a single unnamed vector or
// an object of named vector params.
type vectorsConfigJSON struct {
	params []domcol.VectorParams
}

func (v *vectorsConfigJSON) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return badRequest("vectors: %v", err)
	}
	if _, single := raw["size"]; single {
		p, err := vectorParams(vector.DefaultName, data)
		if err != nil {
			return err
		}
		v.params = []domcol.VectorParams{p}
		return nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := vectorParams(name, raw[name])
		if err != nil {
			return err
		}
		v.params = append(v.params, p)
	}
	return nil
}

func vectorParams(name string, data []byte) (domcol.VectorParams, error) {
	var p vectorParamsJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return domcol.VectorParams{}, badRequest("vector %q: %v", name, err)
	}
	d, err := distance.Parse(p.Distance)
	if err != nil {
		return domcol.VectorParams{}, badRequest("vector %q: %v", name, err)
	}
	return domcol.VectorParams{Name: name, Dim: p.Size, Distance: d}, nil
}

type fieldJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type createCollectionJSON struct {
	Vectors           vectorsConfigJSON `json:"vectors"`
	Fields            []fieldJSON       `json:"fields"`
	ShardNumber       int               `json:"shard_number"`
	ShardKeys         []shard.Key       `json:"shard_keys"`
	ReplicationFactor int               `json:"replication_factor"`
}

func (c createCollectionJSON) config() (domcol.Config, error) {
	fields := make([]field.Field, len(c.Fields))
	for i, f := range c.Fields {
		fld, err := field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return domcol.Config{}, badRequest("field %q: %v", f.Name, err)
		}
		fields[i] = fld
	}
	return domcol.Config{
		Vectors:           c.Vectors.params,
		Fields:            fields,
		ShardNumber:       c.ShardNumber,
		ShardKeys:         c.ShardKeys,
		ReplicationFactor: c.ReplicationFactor,
	}, nil
}

// CreateCollection handles PUT /collections/{collection}.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body createCollectionJSON
	if err := decodeBody(w, r, &body); err != nil {
		handleDomainError(w, r, err)
		return
	}
	cfg, err := body.config()
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	name := gochi.URLParam(r, "collection")
	col, err := s.collections.Create(r.Context(), AccessFromContext(r.Context()), name, cfg)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respond(w, start, collectionToJSON(col), nil)
}

// GetCollection handles GET /collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	col, err := s.collections.Get(r.Context(), AccessFromContext(r.Context()), gochi.URLParam(r, "collection"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respond(w, start, collectionToJSON(col), nil)
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cols, err := s.collections.List(r.Context(), AccessFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items := make([]Collection, len(cols))
	for i, c := range cols {
		items[i] = collectionToJSON(c)
	}
	respond(w, start, map[string]any{"collections": items}, nil)
}

// DeleteCollection handles DELETE /collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := s.collections.Delete(r.Context(), AccessFromContext(r.Context()), gochi.URLParam(r, "collection"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respond(w, start, true, nil)
}

// UpsertPoints handles PUT /collections/{collection}/points.
func (s *Server) UpsertPoints(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body upsertRequestJSON
	if err := decodeBody(w, r, &body); err != nil {
		handleDomainError(w, r, err)
		return
	}
	name := gochi.URLParam(r, "collection")
	pts := body.toDomain()
	if err := s.collections.Upsert(r.Context(), AccessFromContext(r.Context()), name, pts); err != nil {
		handleDomainError(w, r, fmt.Errorf("upsert into %s: %w", name, err))
		return
	}
	respond(w, start, map[string]any{"status": "completed", "points": len(pts)}, nil)
}
