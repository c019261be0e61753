// Package consistency describes how many replicas must agree on a read.
package consistency

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// Kind is the read consistency strategy.
type Kind uint8

// Strategies.
const (
	// KindFactor queries N replicas and keeps results present in all of them.
	KindFactor Kind = iota
	// KindAll queries every replica and keeps results present in all of them.
	KindAll
	// KindMajority queries every replica and keeps results present in more than half.
	KindMajority
	// KindQuorum queries more than half of the replicas and keeps results present in all queried.
	KindQuorum
)

// ReadConsistency is a read consistency requirement. The zero value is Factor(1).
type ReadConsistency struct {
	kind   Kind
	factor int
}

// Factor requires n replicas.
func Factor(n int) ReadConsistency { return ReadConsistency{kind: KindFactor, factor: n} }

// All requires every replica.
func All() ReadConsistency { return ReadConsistency{kind: KindAll} }

// Majority requires more than half of the replicas to agree.
func Majority() ReadConsistency { return ReadConsistency{kind: KindMajority} }

// Quorum requires a majority of replicas to be queried and agree.
func Quorum() ReadConsistency { return ReadConsistency{kind: KindQuorum} }

// Default is used when a request names no consistency.
func Default() ReadConsistency { return Factor(1) }

// Kind returns the strategy.
func (c ReadConsistency) Kind() Kind { return c.kind }

// Parse reads "all", "majority", "quorum" or a positive integer factor.
func Parse(s string) (ReadConsistency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return All(), nil
	case "majority":
		return Majority(), nil
	case "quorum":
		return Quorum(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return ReadConsistency{}, fmt.Errorf("%w: invalid consistency %q", domain.ErrBadRequest, s)
	}
	return Factor(n), nil
}

// String renders the consistency in the same form Parse accepts.
func (c ReadConsistency) String() string {
	switch c.kind {
	case KindAll:
		return "all"
	case KindMajority:
		return "majority"
	case KindQuorum:
		return "quorum"
	default:
		return strconv.Itoa(c.factorOrOne())
	}
}

func (c ReadConsistency) factorOrOne() int {
	if c.factor < 1 {
		return 1
	}
	return c.factor
}

// Plan is how a read over a replica set proceeds.
type Plan struct {
	// Query is the number of replicas to ask.
	Query int
	// Required is the minimum number of successful responses, and the number of
	// responses a result must appear in to be kept.
	Required int
}

// Plan computes the replica plan for a replica set of the given size.
// It fails with ErrInconsistentRead when the set is too small.
func (c ReadConsistency) Plan(replicas int) (Plan, error) {
	if replicas < 1 {
		return Plan{}, fmt.Errorf("%w: no replicas available", domain.ErrInconsistentRead)
	}
	majority := replicas/2 + 1
	var p Plan
	switch c.kind {
	case KindAll:
		p = Plan{Query: replicas, Required: replicas}
	case KindMajority:
		p = Plan{Query: replicas, Required: majority}
	case KindQuorum:
		p = Plan{Query: majority, Required: majority}
	default:
		n := c.factorOrOne()
		if n > replicas {
			return Plan{}, fmt.Errorf("%w: factor %d exceeds %d replicas", domain.ErrInconsistentRead, n, replicas)
		}
		p = Plan{Query: n, Required: n}
	}
	return p, nil
}
