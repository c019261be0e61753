package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// WithMust returns a copy of e with extra must conditions appended.
// The group limit does not apply to conditions added this way.
func (e Expression) WithMust(conds ...Condition) Expression {
	must := make([]Condition, 0, len(e.must)+len(conds))
	must = append(must, e.must...)
	must = append(must, conds...)
	return Expression{must: must, should: e.should, mustNot: e.mustNot}
}

// WithMustNot returns a copy of e with extra must-not conditions appended.
// The group limit does not apply to conditions added this way.
func (e Expression) WithMustNot(conds ...Condition) Expression {
	mustNot := make([]Condition, 0, len(e.mustNot)+len(conds))
	mustNot = append(mustNot, e.mustNot...)
	mustNot = append(mustNot, conds...)
	return Expression{must: e.must, should: e.should, mustNot: mustNot}
}

// Condition is a single filter clause: a tag match against one or more
// values, a numeric range, or a point ID set.
type Condition struct {
	key       string
	values    []string
	rangeExpr *Range
	ids       []uint64
}

// MaxMatchValues bounds the value list of a match-any condition.
const MaxMatchValues = 64

// NewMatch creates an exact tag match condition.
func NewMatch(key, value string) (Condition, error) {
	return NewMatchAny(key, []string{value})
}

// NewMatchAny creates a condition matching points whose tag field holds any
// of values.
func NewMatchAny(key string, values []string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	if len(values) > MaxMatchValues {
		return Condition{}, fmt.Errorf("too many match values for key %q (max %d)", key, MaxMatchValues)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty match value for key %q", key)
		}
	}
	return Condition{key: key, values: append([]string(nil), values...)}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// MaxHasIDs bounds the ID set of a has-id condition.
const MaxHasIDs = 1024

// NewHasID creates a condition matching points whose ID is in ids.
func NewHasID(ids []uint64) (Condition, error) {
	if len(ids) == 0 {
		return Condition{}, fmt.Errorf("has_id requires at least one id")
	}
	if len(ids) > MaxHasIDs {
		return Condition{}, fmt.Errorf("too many ids in has_id (max %d)", MaxHasIDs)
	}
	return Condition{ids: append([]uint64(nil), ids...)}, nil
}

// IDs returns the point IDs of a has-id condition.
func (c Condition) IDs() []uint64 { return c.ids }

// IsHasID reports whether this is a has-id condition.
func (c Condition) IsHasID() bool { return len(c.ids) > 0 }

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the accepted values of a match condition.
func (c Condition) Values() []string { return c.values }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return len(c.values) > 0 }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
