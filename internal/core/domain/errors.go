package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates vectors of different lengths were
	// compared. This is a programming error, rejected eagerly.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrJobTerminal indicates a transition out of a terminal job state
	// was attempted.
	ErrJobTerminal = errors.New("job already in a terminal state")

	// ErrLLMUnavailable indicates no generation backend is active.
	// Answer generation degrades to the extractive mode.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and semantic search are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrAcquireTimeout indicates a rate limiter slot did not free within
	// the caller's timeout.
	ErrAcquireTimeout = errors.New("rate limit acquire timed out")
)

// ErrorClass categorises provider failures for retry and reporting.
type ErrorClass string

// Provider error classes.
const (
	ErrorInvalidRequest     ErrorClass = "invalid_request"
	ErrorAuthentication     ErrorClass = "authentication"
	ErrorPermissionDenied   ErrorClass = "permission_denied"
	ErrorNotFound           ErrorClass = "not_found"
	ErrorTimeout            ErrorClass = "timeout"
	ErrorUnavailable        ErrorClass = "unavailable"
	ErrorIncompleteResponse ErrorClass = "incomplete_response"
	ErrorModelNotFound      ErrorClass = "model_not_found"
	ErrorRateLimitExceeded  ErrorClass = "rate_limit_exceeded"
	ErrorUnknown            ErrorClass = "unknown"
)

// IsTransient reports whether failures of this class are worth retrying.
func (c ErrorClass) IsTransient() bool {
	switch c {
	case ErrorTimeout, ErrorUnavailable, ErrorRateLimitExceeded:
		return true
	default:
		return false
	}
}

// ProviderError wraps a failure from an LLM or embedding backend with its
// classification. It satisfies errors.Unwrap so sentinel checks still work.
type ProviderError struct {
	// Class categorises the failure.
	Class ErrorClass

	// Provider is the backend that produced the failure.
	Provider AIProvider

	// Endpoint is the logical endpoint (e.g. "chat", "embeddings").
	Endpoint string

	// Status is the HTTP status code, if the failure came from a response.
	Status int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %v", e.Provider, e.Endpoint, e.Class, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Endpoint, e.Class, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an error class.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusBadRequest:
		return ErrorInvalidRequest
	case status == http.StatusUnauthorized:
		return ErrorAuthentication
	case status == http.StatusForbidden:
		return ErrorPermissionDenied
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status == http.StatusRequestTimeout:
		return ErrorTimeout
	case status == http.StatusTooManyRequests:
		return ErrorRateLimitExceeded
	case status >= 500:
		return ErrorUnavailable
	default:
		return ErrorUnknown
	}
}

// IsTransient reports whether the error should be retried with backoff.
// Transient classes are Timeout, Unavailable (5xx) and RateLimitExceeded.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class.IsTransient()
	}
	return false
}
