package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/logger"
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeForbidden              ErrorCode = "forbidden"
	CodeNotFound               ErrorCode = "not_found"
	CodeAlreadyExists          ErrorCode = "already_exists"
	CodeTimeout                ErrorCode = "timeout"
	CodeInconsistentRead       ErrorCode = "inconsistent_read"
	CodeInvalidShardKey        ErrorCode = "invalid_shard_key"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeNotImplemented         ErrorCode = "not_implemented"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Status  string    `json:"status"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// errorHandlers maps domain sentinels to HTTP statuses, first match wins.
// ErrInvalidShardKey and ErrVectorDimMismatch come before ErrBadRequest
// because request errors often wrap several sentinels.
var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
	sentinelHandler(domain.ErrInvalidShardKey, http.StatusBadRequest, CodeInvalidShardKey),
	sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
	sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrTimeout, http.StatusRequestTimeout, CodeTimeout),
	sentinelHandler(domain.ErrInconsistentRead, http.StatusServiceUnavailable, CodeInconsistentRead),
	sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
}

// clientMessage returns the message shown to the client. Request errors are
// the caller's own input and are echoed in full; anything else is reduced to
// its sentinel so internals do not leak.
func clientMessage(err error) string {
	for _, s := range []error{domain.ErrBadRequest, domain.ErrInvalidShardKey, domain.ErrVectorDimMismatch} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrForbidden,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrTimeout,
		domain.ErrInconsistentRead,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, clientMessage(err))
		return true
	}
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Code: code, Message: message})
}
