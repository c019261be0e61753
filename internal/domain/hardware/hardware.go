// Package hardware accumulates per-request resource usage.
package hardware

import "sync/atomic"

// Acc accumulates hardware usage for one request. It is safe for concurrent use.
// All methods accept a nil receiver and do nothing.
type Acc struct {
	cpu                atomic.Int64
	payloadIORead      atomic.Int64
	payloadIndexIORead atomic.Int64
	vectorIORead       atomic.Int64
}

// New returns an empty accumulator.
func New() *Acc { return &Acc{} }

// AddCPU records n units of compute (scored vector dimensions).
func (a *Acc) AddCPU(n int) {
	if a != nil {
		a.cpu.Add(int64(n))
	}
}

// AddPayloadIORead records n bytes of payload read.
func (a *Acc) AddPayloadIORead(n int) {
	if a != nil {
		a.payloadIORead.Add(int64(n))
	}
}

// AddPayloadIndexIORead records n bytes of payload index read.
func (a *Acc) AddPayloadIndexIORead(n int) {
	if a != nil {
		a.payloadIndexIORead.Add(int64(n))
	}
}

// AddVectorIORead records n bytes of vector data read.
func (a *Acc) AddVectorIORead(n int) {
	if a != nil {
		a.vectorIORead.Add(int64(n))
	}
}

// Usage returns a snapshot of the counters.
func (a *Acc) Usage() Usage {
	if a == nil {
		return Usage{}
	}
	return Usage{
		CPU:                a.cpu.Load(),
		PayloadIORead:      a.payloadIORead.Load(),
		PayloadIndexIORead: a.payloadIndexIORead.Load(),
		VectorIORead:       a.vectorIORead.Load(),
	}
}

// Usage is a snapshot of accumulated hardware usage.
type Usage struct {
	CPU                int64 `json:"cpu"`
	PayloadIORead      int64 `json:"payload_io_read"`
	PayloadIndexIORead int64 `json:"payload_index_io_read"`
	VectorIORead       int64 `json:"vector_io_read"`
}

// Counter names used for persistence and metrics.
const (
	CounterCPU                = "cpu"
	CounterPayloadIORead      = "payload_io_read"
	CounterPayloadIndexIORead = "payload_index_io_read"
	CounterVectorIORead       = "vector_io_read"
)

// Counters lists every counter name in a stable order.
var Counters = []string{CounterCPU, CounterPayloadIORead, CounterPayloadIndexIORead, CounterVectorIORead}

// Get returns the value of a named counter.
func (u Usage) Get(counter string) int64 {
	switch counter {
	case CounterCPU:
		return u.CPU
	case CounterPayloadIORead:
		return u.PayloadIORead
	case CounterPayloadIndexIORead:
		return u.PayloadIndexIORead
	case CounterVectorIORead:
		return u.VectorIORead
	default:
		return 0
	}
}

// Set assigns a named counter. Unknown names are ignored.
func (u *Usage) Set(counter string, v int64) {
	switch counter {
	case CounterCPU:
		u.CPU = v
	case CounterPayloadIORead:
		u.PayloadIORead = v
	case CounterPayloadIndexIORead:
		u.PayloadIndexIORead = v
	case CounterVectorIORead:
		u.VectorIORead = v
	}
}

// IsZero reports whether nothing was recorded.
func (u Usage) IsZero() bool { return u == Usage{} }
