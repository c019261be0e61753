// Package collection stores collection configuration and the per-shard FT
// indexes points are searched through.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

// Store is the consumer interface for collections (ISP).
//
//nolint:interfacebloat // collection repo needs hash + index management operations
type Store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	ScanHashes(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/collection.Repository and the query distance resolver.
// Indexes are created on every replica store; metadata lives on the first.
type Repo struct {
	store    Store
	replicas []Store
	hnsw     HNSWConfig
}

// New creates a collection repository. replicas are the stores beyond the
// primary that must carry the shard indexes too.
func New(s Store, replicas ...Store) *Repo {
	return &Repo{store: s, replicas: replicas, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

func (r *Repo) indexStores() []Store {
	return append([]Store{r.store}, r.replicas...)
}

// Create stores a collection: claims the metadata key with HSETNX, writes the
// rest of the metadata, then FT.CREATE per shard and replica. On failure the
// indexes created so far are dropped and the metadata is deleted.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	name := col.Name()

	defs, err := buildShardIndexes(col, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}

	metaKey := domain.CollectionKey(name)
	claimed, err := r.store.HSetNX(ctx, metaKey, "name", name)
	if err != nil {
		return fmt.Errorf("claim collection %s: %w", name, err)
	}
	if !claimed {
		return domain.ErrAlreadyExists
	}

	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return errors.Join(fmt.Errorf("hset collection %s: %w", name, err), r.store.Del(ctx, metaKey))
	}

	type created struct {
		s    Store
		name string
	}
	var done []created
	for _, s := range r.indexStores() {
		for _, def := range defs {
			if err := s.CreateIndex(ctx, def); err != nil {
				cleanup := []error{err}
				for _, c := range done {
					cleanup = append(cleanup, c.s.DropIndex(ctx, c.name))
				}
				cleanup = append(cleanup, r.store.Del(ctx, metaKey))
				return errors.Join(cleanup...)
			}
			done = append(done, created{s: s, name: def.Name})
		}
	}

	return nil
}

// Get retrieves a collection by name.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	m, err := r.store.HGetAll(ctx, domain.CollectionKey(name))
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return domcol.Collection{}, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}

	return collectionFromHash(m)
}

// List returns all collections sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	keys, err := r.store.ScanHashes(ctx, domain.CollectionKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if len(keys) == 0 {
		return []domcol.Collection{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi collections: %w", err)
	}

	collections := make([]domcol.Collection, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		col, err := collectionFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		collections = append(collections, col)
	}

	sort.Slice(collections, func(i, j int) bool {
		return collections[i].CreatedAt() < collections[j].CreatedAt()
	})

	return collections, nil
}

// Delete removes a collection: backup metadata, DEL hash, FT.DROPINDEX DD per shard
// and replica (rollback HSET on error). Missing indexes are skipped.
func (r *Repo) Delete(ctx context.Context, name string) error {
	metaKey := domain.CollectionKey(name)

	metaBackup, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(metaBackup) == 0 {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	col, err := collectionFromHash(metaBackup)
	if err != nil {
		return fmt.Errorf("parse collection %s: %w", name, err)
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}

	for _, s := range r.indexStores() {
		for shard := range col.TotalShards() {
			err := s.DropIndex(ctx, domain.ShardIndex(name, uint32(shard)))
			if err == nil || errors.Is(err, db.ErrIndexNotFound) {
				continue
			}
			cleanupErr := r.store.HSet(ctx, metaKey, metaBackup)
			return errors.Join(err, cleanupErr)
		}
	}

	return nil
}

// Distance resolves the metric of a collection vector. An empty vector name
// addresses the collection's default vector. ok is false when the vector does
// not exist.
func (r *Repo) Distance(
	ctx context.Context, collection, vectorName string, acc access.Access,
) (distance.Distance, bool, error) {
	if err := acc.CheckCollection(collection, access.Read); err != nil {
		return 0, false, err
	}
	col, err := r.Get(ctx, collection)
	if err != nil {
		return 0, false, err
	}
	if v, ok := col.Vector(vectorName); ok {
		return v.Distance, true, nil
	}
	if vectorName == "" {
		return col.DefaultVector().Distance, true, nil
	}
	return 0, false, nil
}
