package domain

import (
	"fmt"
	"strconv"
)

// KeyPrefix namespaces every key written by vecquery.
const KeyPrefix = "vecquery:"

// Hash fields of a stored point. Payload fields declared on the collection are
// stored next to them under their own names.
const (
	FieldID       = "__id"
	FieldShardKey = "__shard_key"
	FieldPayload  = "__payload"
	fieldVector   = "__v"
)

// CollectionKey is the hash holding a collection's configuration.
func CollectionKey(name string) string {
	return fmt.Sprintf("%scollection:%s", KeyPrefix, name)
}

// ShardPrefix is the key prefix of every point of one shard.
func ShardPrefix(collection string, shard uint32) string {
	return fmt.Sprintf("%s%s:s%d:", KeyPrefix, collection, shard)
}

// ShardIndex is the FT index over one shard.
func ShardIndex(collection string, shard uint32) string {
	return fmt.Sprintf("%s%s:s%d:idx", KeyPrefix, collection, shard)
}

// PointKey is the hash holding one point.
func PointKey(collection string, shard uint32, id uint64) string {
	return ShardPrefix(collection, shard) + strconv.FormatUint(id, 10)
}

// VectorField is the hash field of the named vector; the default vector is stored under "__v".
func VectorField(name string) string {
	if name == "" {
		return fieldVector
	}
	return fieldVector + "_" + name
}

// UsageKey is the counter of one hardware measurement of a collection.
func UsageKey(collection, counter string) string {
	return fmt.Sprintf("%susage:%s:%s", KeyPrefix, collection, counter)
}

// UsageBucketKey is the counter of one hardware measurement within a time
// bucket such as "daily:2024-03-01" or "monthly:2024-03".
func UsageBucketKey(collection, bucket, counter string) string {
	return fmt.Sprintf("%susage:%s:%s:%s", KeyPrefix, collection, bucket, counter)
}
