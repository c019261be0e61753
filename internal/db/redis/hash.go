package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecquery/internal/db"
)

// scanBatch is the COUNT hint of each SCAN page.
const scanBatch = 100

func (s *Store) hset(item db.HashSetItem) rueidis.Completed {
	cmd := s.b().Hset().Key(item.Key).FieldValue()
	for k, v := range item.Fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// HSet writes fields into the hash at key.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.do(ctx, s.hset(db.HashSetItem{Key: key, Fields: fields})).Error(); err != nil {
		return s.err(db.OpHSet, err)
	}
	return nil
}

// HSetNX sets field only when the hash has none yet and reports whether it
// did. Concurrent creators of the same key see exactly one true.
func (s *Store) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	cmd := s.b().Hsetnx().Key(key).Field(field).Value(value).Build()
	set, err := s.do(ctx, cmd).AsBool()
	if err != nil {
		return false, s.err(db.OpHSetNX, err)
	}
	return set, nil
}

// HSetMulti writes every point hash of one shard in a single pipeline.
// The first failed item aborts with its key in the error.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make(rueidis.Commands, len(items))
	for i := range items {
		cmds[i] = s.hset(items[i])
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return s.err(db.OpHSet, fmt.Errorf("key %s: %w", items[i].Key, err))
		}
	}
	return nil
}

// HGetAll returns all fields of a hash, empty when the key is missing.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, s.err(db.OpHGetAll, err)
	}
	return m, nil
}

// HGetAllMulti pipelines HGETALL over keys. Results keep the key order;
// missing keys yield empty maps.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	out := make([]map[string]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, s.err(db.OpHGetAll, fmt.Errorf("key %s: %w", keys[i], err))
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.do(ctx, s.b().Del().Key(key).Build()).Error(); err != nil {
		return s.err(db.OpDel, err)
	}
	return nil
}

// ScanHashes walks the keyspace and returns the hash keys matching pattern.
// Keys of other types under the same pattern are skipped server-side.
func (s *Store) ScanHashes(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Type("hash").Build()
		page, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, s.err(db.OpScan, err)
		}
		keys = append(keys, page.Elements...)
		if cursor = page.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}
