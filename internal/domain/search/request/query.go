package request

import (
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

// QueryEnum is a resolved query shape of a core search. Implementations:
// Nearest, RecommendBestScore, Discover, Context.
type QueryEnum interface {
	isQueryEnum()
	// VectorName returns the collection vector the query runs against.
	VectorName() string
}

// Nearest finds the points closest to one vector.
type Nearest struct {
	Using  string
	Vector vector.Internal
}

func (Nearest) isQueryEnum() {}

// VectorName implements QueryEnum.
func (q Nearest) VectorName() string { return q.Using }

// RecommendBestScore scores each candidate by its best positive example,
// penalizing candidates closer to a negative example.
type RecommendBestScore struct {
	Using    string
	Positive []vector.Internal
	Negative []vector.Internal
}

func (RecommendBestScore) isQueryEnum() {}

// VectorName implements QueryEnum.
func (q RecommendBestScore) VectorName() string { return q.Using }

// ContextPair splits space into a preferred (positive) and an avoided (negative) side.
type ContextPair struct {
	Positive vector.Internal
	Negative vector.Internal
}

// Discover ranks candidates by how many context pairs they satisfy, then by
// similarity to the target.
type Discover struct {
	Using   string
	Target  vector.Internal
	Context []ContextPair
}

func (Discover) isQueryEnum() {}

// VectorName implements QueryEnum.
func (q Discover) VectorName() string { return q.Using }

// Context ranks candidates by how well they satisfy every context pair.
type Context struct {
	Using string
	Pairs []ContextPair
}

func (Context) isQueryEnum() {}

// VectorName implements QueryEnum.
func (q Context) VectorName() string { return q.Using }

// ValidateQueryEnum checks that a resolved query carries the vectors its shape needs.
func ValidateQueryEnum(q QueryEnum) error {
	switch v := q.(type) {
	case Nearest:
		if v.Vector == nil || v.Vector.Dim() == 0 {
			return fmt.Errorf("%w: nearest query requires a vector", domain.ErrBadRequest)
		}
	case RecommendBestScore:
		if len(v.Positive) == 0 {
			return fmt.Errorf("%w: recommend query requires at least one positive example", domain.ErrBadRequest)
		}
	case Discover:
		if v.Target == nil {
			return fmt.Errorf("%w: discover query requires a target", domain.ErrBadRequest)
		}
	case Context:
		if len(v.Pairs) == 0 {
			return fmt.Errorf("%w: context query requires at least one pair", domain.ErrBadRequest)
		}
	case nil:
		return fmt.Errorf("%w: query is required", domain.ErrBadRequest)
	default:
		return fmt.Errorf("%w: unsupported query %T", domain.ErrBadRequest, q)
	}
	return nil
}
