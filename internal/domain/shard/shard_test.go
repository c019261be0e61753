package shard

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr bool
	}{
		{"string", StringKey("tenant-a"), false},
		{"number", NumberKey(0), false},
		{"empty string", StringKey(""), true},
		{"too long", StringKey(strings.Repeat("x", MaxKeyLength+1)), true},
		{"nul byte", StringKey("a\x00b"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr && !errors.Is(err, domain.ErrInvalidShardKey) {
				t.Errorf("Validate() = %v, want ErrInvalidShardKey", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestKey_JSON(t *testing.T) {
	var keys []Key
	if err := json.Unmarshal([]byte(`["eu", 42]`), &keys); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keys[0] != StringKey("eu") || keys[1] != NumberKey(42) {
		t.Errorf("keys = %+v", keys)
	}

	b, err := json.Marshal(keys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `["eu",42]` {
		t.Errorf("json = %s", b)
	}

	var k Key
	if err := json.Unmarshal([]byte(`-1`), &k); !errors.Is(err, domain.ErrInvalidShardKey) {
		t.Errorf("negative key err = %v", err)
	}
}

func TestForKeys_NoKeysIsAll(t *testing.T) {
	if !ForKeys().IsAll() {
		t.Error("ForKeys() should target all shards")
	}
}

func TestForKeys_DedupPreservesOrder(t *testing.T) {
	s := ForKeys(StringKey("b"), NumberKey(7), StringKey("b"), StringKey("a"))
	got := s.Keys()
	want := []Key{StringKey("b"), NumberKey(7), StringKey("a")}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSelector_Comparable(t *testing.T) {
	groups := map[Selector]int{}
	groups[ForKeys(StringKey("a"))]++
	groups[All()]++
	groups[ForKeys(StringKey("a"))]++
	groups[All()]++
	groups[ForKeys(NumberKey(1))]++

	if len(groups) != 3 {
		t.Fatalf("distinct selectors = %d, want 3", len(groups))
	}
	if groups[ForKeys(StringKey("a"))] != 2 {
		t.Errorf("string key group = %d", groups[ForKeys(StringKey("a"))])
	}
}

func TestSelector_StringVsNumberKeysDiffer(t *testing.T) {
	if ForKeys(StringKey("1")) == ForKeys(NumberKey(1)) {
		t.Error("string and numeric keys with the same text must differ")
	}
}

func TestSelector_Validate(t *testing.T) {
	if err := ForKeys(StringKey("")).Validate(); !errors.Is(err, domain.ErrInvalidShardKey) {
		t.Errorf("Validate() = %v, want ErrInvalidShardKey", err)
	}
	if err := All().Validate(); err != nil {
		t.Errorf("All().Validate() = %v", err)
	}
	if err := ForShardID(3).Validate(); err != nil {
		t.Errorf("ForShardID().Validate() = %v", err)
	}
}

func TestSelector_String(t *testing.T) {
	tests := []struct {
		sel  Selector
		want string
	}{
		{All(), "all"},
		{ForShardID(2), "shard:2"},
		{ForKeys(StringKey("eu"), NumberKey(5)), "keys:eu,5"},
	}
	for _, tt := range tests {
		if got := tt.sel.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
