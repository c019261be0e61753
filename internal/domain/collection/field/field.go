// Package field describes indexed payload fields that filters can match on.
package field

import (
	"fmt"
	"strings"
)

// Type is the indexing type of a payload field.
type Type string

// Field type constants.
const (
	// Keyword is an exact-match string field; arrays of strings index every element.
	Keyword Type = "keyword"
	// Numeric is a float range field.
	Numeric Type = "numeric"
	// Bool is a boolean field matched by value.
	Bool Type = "bool"
)

// MaxNameLength bounds payload field names.
const MaxNameLength = 64

// ReservedPrefix marks storage-internal hash fields.
const ReservedPrefix = "__"

var reservedFieldNames = map[string]bool{
	"id": true, "score": true, "vector": true, "shard_key": true,
}

// Tagged reports whether values of t are indexed as exact-match tags.
func (t Type) Tagged() bool { return t == Keyword || t == Bool }

// Field is an immutable value object describing an indexed payload field.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field. Names are [a-zA-Z0-9_] so they can be
// used verbatim in index queries.
func New(name string, ft Type) (Field, error) {
	if err := validName(name); err != nil {
		return Field{}, err
	}
	switch ft {
	case Keyword, Numeric, Bool:
	default:
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("field name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("field name %q too long (max %d)", name, MaxNameLength)
	}
	if reservedFieldNames[name] || strings.HasPrefix(name, ReservedPrefix) {
		return fmt.Errorf("field name %q is reserved", name)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return fmt.Errorf("field name %q: only letters, digits and underscores are allowed", name)
		}
	}
	return nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }
