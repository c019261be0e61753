package request

import (
	"time"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	"github.com/kailas-cloud/vecquery/internal/domain/consistency"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
)

// ReadParams are the cross-cutting parameters of every read operation.
type ReadParams struct {
	// Consistency is the replica agreement required; nil uses the default.
	Consistency *consistency.ReadConsistency
	// Access gates which collections the caller can read.
	Access access.Access
	// Timeout bounds the whole call; zero means no timeout.
	Timeout time.Duration
	// HW accumulates resource usage. It may be nil.
	HW *hardware.Acc
}

// ReadConsistency returns the requested consistency or the default.
func (p ReadParams) ReadConsistency() consistency.ReadConsistency {
	if p.Consistency == nil {
		return consistency.Default()
	}
	return *p.Consistency
}
