// Package access carries the caller's permissions through a request.
package access

import (
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// Mode is a permission level. The zero value grants nothing.
type Mode uint8

// Modes.
const (
	// Read allows queries.
	Read Mode = iota + 1
	// ReadWrite allows queries and mutations.
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case ReadWrite:
		return "read-write"
	default:
		return "none"
	}
}

// covers reports whether m satisfies required.
func (m Mode) covers(required Mode) bool {
	return required != 0 && m >= required
}

// Access is the permission set of a caller: a global mode, or per-collection modes.
// The zero value denies everything.
type Access struct {
	global      Mode
	collections map[string]Mode
}

// Global grants mode on every collection.
func Global(mode Mode) Access { return Access{global: mode} }

// Full grants read-write on every collection.
func Full() Access { return Global(ReadWrite) }

// Collections grants per-collection modes.
func Collections(modes map[string]Mode) Access {
	c := make(map[string]Mode, len(modes))
	for k, v := range modes {
		c[k] = v
	}
	return Access{collections: c}
}

// IsGlobal reports whether the access has a global mode.
func (a Access) IsGlobal() bool { return a.global != 0 }

// CheckGlobal fails unless the global mode covers required.
func (a Access) CheckGlobal(required Mode) error {
	if a.global.covers(required) {
		return nil
	}
	return fmt.Errorf("%w: global %s access required", domain.ErrForbidden, required)
}

// CheckCollection fails with ErrForbidden unless access to collection covers required.
func (a Access) CheckCollection(collection string, required Mode) error {
	if a.global.covers(required) {
		return nil
	}
	if m, ok := a.collections[collection]; ok && m.covers(required) {
		return nil
	}
	return fmt.Errorf("%w: %s access to collection %q required", domain.ErrForbidden, required, collection)
}
