package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrBadRequest signals a request the caller can correct.
	ErrBadRequest = errors.New("bad request")
	// ErrForbidden signals that the access context does not cover the collection.
	ErrForbidden = errors.New("forbidden")
	// ErrTimeout signals that a call did not complete within its timeout.
	ErrTimeout = errors.New("timeout")
	// ErrInconsistentRead signals that not enough replicas answered to satisfy read consistency.
	ErrInconsistentRead = errors.New("read consistency not satisfied")
	// ErrInvalidShardKey signals a malformed shard key or shard selector.
	ErrInvalidShardKey = errors.New("invalid shard key")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrServiceError signals a broken internal invariant (never a user error).
	ErrServiceError = errors.New("service error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// NewServiceError wraps ErrServiceError with a description of the violated invariant.
func NewServiceError(description string) error {
	return fmt.Errorf("%w: %s", ErrServiceError, description)
}

// TimeoutError wraps ErrTimeout with the budget that was exceeded.
type TimeoutError struct {
	Operation string
	Timeout   fmt.Stringer
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s exceeded %s", ErrTimeout.Error(), e.Operation, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }
