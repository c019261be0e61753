package shard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// Kind tells which partitions a Selector targets.
type Kind uint8

// Selector kinds.
const (
	// KindAll targets every shard of the collection.
	KindAll Kind = iota
	// KindKeys targets the shards owning one or more shard keys.
	KindKeys
	// KindShardID targets a single shard by number (internal routing).
	KindShardID
)

const keySeparator = "\x00"

// Selector specifies which partitions a request targets.
// Selector is comparable, so equal selectors can be used as map keys when
// coalescing requests.
type Selector struct {
	kind    Kind
	keys    string // encoded keys, keySeparator-joined, first-seen order, deduplicated
	shardID uint32
}

// All targets every shard.
func All() Selector { return Selector{kind: KindAll} }

// ForKeys targets the shards owning keys. Duplicates are removed; no keys means All.
func ForKeys(keys ...Key) Selector {
	if len(keys) == 0 {
		return All()
	}
	seen := make(map[Key]struct{}, len(keys))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		parts = append(parts, k.encode())
	}
	return Selector{kind: KindKeys, keys: strings.Join(parts, keySeparator)}
}

// ForShardID targets exactly one shard.
func ForShardID(id uint32) Selector {
	return Selector{kind: KindShardID, shardID: id}
}

// Kind returns the selector kind.
func (s Selector) Kind() Kind { return s.kind }

// IsAll reports whether every shard is targeted.
func (s Selector) IsAll() bool { return s.kind == KindAll }

// Keys returns the selected shard keys in first-seen order.
func (s Selector) Keys() []Key {
	if s.kind != KindKeys {
		return nil
	}
	parts := strings.Split(s.keys, keySeparator)
	keys := make([]Key, len(parts))
	for i, p := range parts {
		keys[i] = decodeKey(p)
	}
	return keys
}

// ShardID returns the targeted shard number for KindShardID selectors.
func (s Selector) ShardID() uint32 { return s.shardID }

// Validate checks every key of the selector.
func (s Selector) Validate() error {
	switch s.kind {
	case KindAll, KindShardID:
		return nil
	case KindKeys:
		for _, k := range s.Keys() {
			if err := k.Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown selector kind %d", domain.ErrInvalidShardKey, s.kind)
	}
}

// String renders the selector for logs and metrics.
func (s Selector) String() string {
	switch s.kind {
	case KindAll:
		return "all"
	case KindShardID:
		return "shard:" + strconv.FormatUint(uint64(s.shardID), 10)
	default:
		keys := s.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k.String()
		}
		return "keys:" + strings.Join(parts, ",")
	}
}
