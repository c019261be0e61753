// Package vector models query and stored vector shapes.
package vector

import (
	"fmt"
	"sort"
)

// DefaultName is the name of the unnamed (default) vector of a collection.
const DefaultName = ""

// Internal is a single query or stored vector. Implementations: Dense, Sparse, MultiDense.
type Internal interface {
	isInternal()
	// Dim returns the vector dimensionality (number of sub-vectors for MultiDense).
	Dim() int
}

// Dense is a plain float vector.
type Dense []float32

func (Dense) isInternal() {}

// Dim returns len(d).
func (d Dense) Dim() int { return len(d) }

// Sparse is an index/value vector.
type Sparse struct {
	Indices []uint32
	Values  []float32
}

func (Sparse) isInternal() {}

// Dim returns the number of non-zero entries.
func (s Sparse) Dim() int { return len(s.Indices) }

// Validate checks that indices and values line up.
func (s Sparse) Validate() error {
	if len(s.Indices) != len(s.Values) {
		return fmt.Errorf("sparse vector has %d indices and %d values", len(s.Indices), len(s.Values))
	}
	return nil
}

// MultiDense is a list of dense sub-vectors of equal size.
type MultiDense [][]float32

func (MultiDense) isInternal() {}

// Dim returns the number of sub-vectors.
func (m MultiDense) Dim() int { return len(m) }

// AsDense returns the dense vector if v is Dense.
func AsDense(v Internal) (Dense, bool) {
	d, ok := v.(Dense)
	return d, ok
}

// Struct is the vector payload of a stored point. Implementations: Single, Multi, Named.
type Struct interface {
	isStruct()
}

// Single is a point stored with one unnamed dense vector.
type Single Dense

func (Single) isStruct() {}

// Multi is a point stored with one unnamed multi-dense vector.
type Multi MultiDense

func (Multi) isStruct() {}

// Named is a point stored with named vectors of any shape.
type Named map[string]Internal

func (Named) isStruct() {}

// Names returns vector names in ascending order.
func (n Named) Names() []string {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FirstDense returns the first dense vector of s. For Named structs vectors are
// visited in ascending name order. Multi-dense storage yields nothing.
func FirstDense(s Struct) (Dense, bool) {
	switch v := s.(type) {
	case Single:
		return Dense(v), true
	case Multi:
		return nil, false
	case Named:
		for _, name := range v.Names() {
			if d, ok := v[name].(Dense); ok {
				return d, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// Get returns the vector stored under name. DefaultName addresses Single/Multi structs.
func Get(s Struct, name string) (Internal, bool) {
	switch v := s.(type) {
	case Single:
		if name == DefaultName {
			return Dense(v), true
		}
	case Multi:
		if name == DefaultName {
			return MultiDense(v), true
		}
	case Named:
		in, ok := v[name]
		return in, ok
	}
	return nil, false
}

// Select narrows s to the requested names. An empty names list keeps everything.
func Select(s Struct, names []string) Struct {
	if len(names) == 0 || s == nil {
		return s
	}
	named, ok := s.(Named)
	if !ok {
		for _, n := range names {
			if n == DefaultName {
				return s
			}
		}
		return nil
	}
	out := make(Named, len(names))
	for _, n := range names {
		if v, ok := named[n]; ok {
			out[n] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
