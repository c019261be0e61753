package collection

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/collection/field"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Limits.
const (
	MaxShards  = 64
	MaxVectors = 16
	MaxFields  = 64
	MaxDim     = 65536
)

// VectorParams configures one vector of a collection. An empty Name is the
// default (unnamed) vector.
type VectorParams struct {
	Name     string
	Dim      int
	Distance distance.Distance
}

// Config is the user-provided part of a collection.
type Config struct {
	Vectors []VectorParams
	Fields  []field.Field
	// ShardNumber is the number of shards (per shard key with custom sharding).
	ShardNumber int
	// ShardKeys enables custom sharding. Each key owns ShardNumber shards.
	ShardKeys         []shard.Key
	ReplicationFactor int
}

// Collection is the collection aggregate (immutable value object).
type Collection struct {
	name      string
	cfg       Config
	createdAt int64
	revision  int
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > MaxFields {
		return fmt.Errorf("too many fields (max %d)", MaxFields)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

func validateVectors(vectors []VectorParams) error {
	if len(vectors) == 0 {
		return fmt.Errorf("at least one vector is required")
	}
	if len(vectors) > MaxVectors {
		return fmt.Errorf("too many vectors (max %d)", MaxVectors)
	}
	seen := make(map[string]bool, len(vectors))
	for _, v := range vectors {
		if seen[v.Name] {
			return fmt.Errorf("duplicate vector name: %q", v.Name)
		}
		seen[v.Name] = true
		if v.Name != "" && !nameRegex.MatchString(v.Name) {
			return fmt.Errorf("vector name %q must be alphanumeric with underscores and hyphens", v.Name)
		}
		if v.Dim <= 0 || v.Dim > MaxDim {
			return fmt.Errorf("vector %q dimension must be positive (max %d)", v.Name, MaxDim)
		}
		if !v.Distance.IsValid() {
			return fmt.Errorf("vector %q has invalid distance", v.Name)
		}
	}
	return nil
}

func validateSharding(cfg Config) error {
	if cfg.ShardNumber < 1 || cfg.ShardNumber > MaxShards {
		return fmt.Errorf("shard number must be between 1 and %d", MaxShards)
	}
	if len(cfg.ShardKeys)*cfg.ShardNumber > MaxShards {
		return fmt.Errorf("too many shards (max %d)", MaxShards)
	}
	seen := make(map[shard.Key]bool, len(cfg.ShardKeys))
	for _, k := range cfg.ShardKeys {
		if err := k.Validate(); err != nil {
			return err
		}
		if seen[k] {
			return fmt.Errorf("duplicate shard key: %s", k)
		}
		seen[k] = true
	}
	if cfg.ReplicationFactor < 1 {
		return fmt.Errorf("replication factor must be positive")
	}
	return nil
}

func normalize(cfg Config) Config {
	if cfg.ShardNumber == 0 {
		cfg.ShardNumber = 1
	}
	if cfg.ReplicationFactor == 0 {
		cfg.ReplicationFactor = 1
	}
	vectors := append([]VectorParams(nil), cfg.Vectors...)
	sort.Slice(vectors, func(i, j int) bool { return vectors[i].Name < vectors[j].Name })
	cfg.Vectors = vectors
	return cfg
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Vectors: unique names, positive dims.
// ShardNumber and ReplicationFactor default to 1.
func New(name string, cfg Config) (Collection, error) {
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	cfg = normalize(cfg)
	if err := validateVectors(cfg.Vectors); err != nil {
		return Collection{}, err
	}
	if err := validateFields(cfg.Fields); err != nil {
		return Collection{}, err
	}
	if err := validateSharding(cfg); err != nil {
		return Collection{}, err
	}
	return Collection{
		name:      name,
		cfg:       cfg,
		createdAt: time.Now().UnixMilli(),
		revision:  1,
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, cfg Config, createdAt int64, revision int) Collection {
	return Collection{name: name, cfg: normalize(cfg), createdAt: createdAt, revision: revision}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Vectors returns the vector configuration in ascending name order.
func (c Collection) Vectors() []VectorParams { return c.cfg.Vectors }

// Fields returns the indexed payload fields.
func (c Collection) Fields() []field.Field { return c.cfg.Fields }

// ShardNumber returns the number of shards per shard key (or in total without custom sharding).
func (c Collection) ShardNumber() int { return c.cfg.ShardNumber }

// ShardKeys returns the custom shard keys, nil with automatic sharding.
func (c Collection) ShardKeys() []shard.Key { return c.cfg.ShardKeys }

// IsCustomSharded reports whether points are placed by shard key.
func (c Collection) IsCustomSharded() bool { return len(c.cfg.ShardKeys) > 0 }

// ReplicationFactor returns the number of replicas holding each shard.
func (c Collection) ReplicationFactor() int { return c.cfg.ReplicationFactor }

// Config returns the collection configuration.
func (c Collection) Config() Config { return c.cfg }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Revision returns the optimistic concurrency version.
func (c Collection) Revision() int { return c.revision }

// Vector looks up a vector by name.
func (c Collection) Vector(name string) (VectorParams, bool) {
	for _, v := range c.cfg.Vectors {
		if v.Name == name {
			return v, true
		}
	}
	return VectorParams{}, false
}

// DefaultVector returns the unnamed vector, or the first vector in name order.
func (c Collection) DefaultVector() VectorParams {
	if v, ok := c.Vector(""); ok {
		return v
	}
	return c.cfg.Vectors[0]
}

// HasField checks if a field with the given name and type exists.
func (c Collection) HasField(name string, ft field.Type) bool {
	for _, f := range c.cfg.Fields {
		if f.Name() == name && f.FieldType() == ft {
			return true
		}
	}
	return false
}

// FieldByName looks up a field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.cfg.Fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// TotalShards returns the number of physical shards.
func (c Collection) TotalShards() int {
	if c.IsCustomSharded() {
		return len(c.cfg.ShardKeys) * c.cfg.ShardNumber
	}
	return c.cfg.ShardNumber
}

// ShardKeyOf returns the shard key owning shard number id, nil with automatic sharding.
func (c Collection) ShardKeyOf(id uint32) *shard.Key {
	if !c.IsCustomSharded() {
		return nil
	}
	idx := int(id) / c.cfg.ShardNumber
	if idx >= len(c.cfg.ShardKeys) {
		return nil
	}
	k := c.cfg.ShardKeys[idx]
	return &k
}

func (c Collection) keyIndex(k shard.Key) (int, bool) {
	for i, existing := range c.cfg.ShardKeys {
		if existing == k {
			return i, true
		}
	}
	return 0, false
}

// Shards resolves a selector to physical shard numbers in ascending order.
func (c Collection) Shards(sel shard.Selector) ([]uint32, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	switch sel.Kind() {
	case shard.KindShardID:
		if int(sel.ShardID()) >= c.TotalShards() {
			return nil, fmt.Errorf("%w: shard %d of collection %q", domain.ErrNotFound, sel.ShardID(), c.name)
		}
		return []uint32{sel.ShardID()}, nil
	case shard.KindKeys:
		if !c.IsCustomSharded() {
			return nil, fmt.Errorf("%w: collection %q does not use custom sharding", domain.ErrInvalidShardKey, c.name)
		}
		var out []uint32
		for _, k := range sel.Keys() {
			idx, ok := c.keyIndex(k)
			if !ok {
				return nil, fmt.Errorf("%w: shard key %q not found in collection %q", domain.ErrInvalidShardKey, k, c.name)
			}
			out = append(out, c.keyShards(idx)...)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out, nil
	default:
		out := make([]uint32, c.TotalShards())
		for i := range out {
			out[i] = uint32(i)
		}
		return out, nil
	}
}

func (c Collection) keyShards(idx int) []uint32 {
	out := make([]uint32, c.cfg.ShardNumber)
	for i := range out {
		out[i] = uint32(idx*c.cfg.ShardNumber + i)
	}
	return out
}

// PlaceShard returns the shard a point belongs to. With custom sharding key selects
// the key's shard range; otherwise key must be nil.
func (c Collection) PlaceShard(id uint64, key *shard.Key) (uint32, error) {
	offset := uint32(id % uint64(c.cfg.ShardNumber))
	if !c.IsCustomSharded() {
		if key != nil {
			return 0, fmt.Errorf("%w: collection %q does not use custom sharding", domain.ErrInvalidShardKey, c.name)
		}
		return offset, nil
	}
	if key == nil {
		return 0, fmt.Errorf("%w: shard key is required for collection %q", domain.ErrInvalidShardKey, c.name)
	}
	idx, ok := c.keyIndex(*key)
	if !ok {
		return 0, fmt.Errorf("%w: shard key %q not found in collection %q", domain.ErrInvalidShardKey, key, c.name)
	}
	return uint32(idx*c.cfg.ShardNumber) + offset, nil
}
