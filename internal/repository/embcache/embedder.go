// Package embcache caches document embeddings in the primary store, in front
// of the budgeted inference chain.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// Lookup outcomes, used as the "result" label of the cache counter.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultShared = "shared"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings keyed by model and text, so switching models
// never serves stale vectors. Concurrent misses on one text share a single
// inner call.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	model   string
	dims    int
	ttl     time.Duration
	results *prometheus.CounterVec
	logger  *zap.Logger
	flight  singleflight.Group
}

// Config tunes the cache.
type Config struct {
	// Model is part of every cache key.
	Model string
	// Dimensions, when set, rejects cached vectors of any other length.
	Dimensions int
	// TTL bounds the lifetime of an entry; 0 keeps entries until evicted.
	TTL time.Duration
	// CacheTotal counts lookups by "result": hit, miss or shared.
	CacheTotal *prometheus.CounterVec
	Logger     *zap.Logger
}

// New creates a caching decorator.
func New(inner domain.Embedder, s store, cfg Config) *CachedEmbedder {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		model:   cfg.Model,
		dims:    cfg.Dimensions,
		ttl:     cfg.TTL,
		results: cfg.CacheTotal,
		logger:  log.With(zap.String("component", "embcache"), zap.String("model", cfg.Model)),
	}
}

// Embed returns a cached embedding or calls the inner embedder. Only the call
// that reached the provider reports tokens; hits and shared results report none.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count(resultHit)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	var leader bool
	v, err, _ := c.flight.Do(key, func() (any, error) {
		leader = true
		res, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.save(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	res := v.(domain.EmbeddingResult)
	if !leader {
		c.count(resultShared)
		return domain.EmbeddingResult{Embedding: res.Embedding}, nil
	}
	c.count(resultMiss)
	return res, nil
}

func (c *CachedEmbedder) count(result string) {
	if c.results != nil {
		c.results.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + c.model + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	case len(data) == 0:
		return nil, false
	}

	vec, err := db.DecodeVector(string(data))
	if err != nil {
		c.logger.Warn("Corrupt embedding cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if c.dims > 0 && len(vec) != c.dims {
		c.logger.Debug("Cached embedding has stale dimensions",
			zap.String("key", key), zap.Int("got", len(vec)), zap.Int("want", c.dims))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, []byte(db.EncodeVector(vec)), c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}
