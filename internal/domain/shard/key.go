// Package shard models custom shard keys and the selectors that route a
// request to a subset of a collection's shards.
package shard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// MaxKeyLength bounds string shard keys.
const MaxKeyLength = 256

// Key is a user-defined shard key: either a string or an unsigned number.
// Key is comparable.
type Key struct {
	str     string
	num     uint64
	numeric bool
}

// StringKey creates a string shard key.
func StringKey(s string) Key { return Key{str: s} }

// NumberKey creates a numeric shard key.
func NumberKey(n uint64) Key { return Key{num: n, numeric: true} }

// IsNumber reports whether the key is numeric.
func (k Key) IsNumber() bool { return k.numeric }

// Number returns the numeric value (0 for string keys).
func (k Key) Number() uint64 { return k.num }

// String returns the key as text.
func (k Key) String() string {
	if k.numeric {
		return strconv.FormatUint(k.num, 10)
	}
	return k.str
}

// Validate rejects empty, oversized, and NUL-containing string keys.
func (k Key) Validate() error {
	if k.numeric {
		return nil
	}
	if k.str == "" {
		return fmt.Errorf("%w: empty shard key", domain.ErrInvalidShardKey)
	}
	if len(k.str) > MaxKeyLength {
		return fmt.Errorf("%w: shard key longer than %d", domain.ErrInvalidShardKey, MaxKeyLength)
	}
	if strings.ContainsRune(k.str, 0) {
		return fmt.Errorf("%w: shard key contains NUL", domain.ErrInvalidShardKey)
	}
	return nil
}

func (k Key) encode() string {
	if k.numeric {
		return "n" + strconv.FormatUint(k.num, 10)
	}
	return "s" + k.str
}

func decodeKey(s string) Key {
	if strings.HasPrefix(s, "n") {
		if n, err := strconv.ParseUint(s[1:], 10, 64); err == nil {
			return NumberKey(n)
		}
	}
	if s == "" {
		return Key{}
	}
	return StringKey(s[1:])
}

// MarshalJSON renders numeric keys as JSON numbers and string keys as strings.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.numeric {
		return []byte(strconv.FormatUint(k.num, 10)), nil
	}
	return json.Marshal(k.str)
}

// UnmarshalJSON accepts a JSON string or a non-negative integer.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = StringKey(s)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: shard key must be a string or unsigned integer", domain.ErrInvalidShardKey)
	}
	*k = NumberKey(n)
	return nil
}
