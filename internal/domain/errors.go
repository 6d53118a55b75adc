package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionFailed is returned when every model in a chain has failed
	ErrExtractionFailed = errors.New("extraction failed for all configured models")

	// ErrPayloadTooLarge is returned when an uploaded image exceeds the size ceiling
	ErrPayloadTooLarge = errors.New("image payload exceeds size limit")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrNoMatch is returned when no candidate scores above the acceptance
	// threshold. It signals a normal outcome, not a failure.
	ErrNoMatch = errors.New("no candidate above match threshold")
)

// ErrorKind classifies a single model invocation failure
type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindRateLimited     ErrorKind = "rate_limited"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindTransportError  ErrorKind = "transport_error"
)

// ModelError describes why a single invocation of a single model failed
type ModelError struct {
	Kind   ErrorKind
	Model  string
	Status int   // HTTP status when known, 0 otherwise
	Err    error // underlying cause, may be nil
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s: %s: %v", e.Model, e.Kind, e.Err)
	}
	return fmt.Sprintf("model %s: %s", e.Model, e.Kind)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Retryable reports whether the same model may be retried for this failure.
// Only timeouts and transport failures are considered transient; rate limits
// and malformed responses escalate to the next model in the chain.
func (e *ModelError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindTransportError
}

// Attempt records one failed model invocation inside a fallback chain
type Attempt struct {
	Model string      `json:"model"`
	Kind  ErrorKind   `json:"kind"`
	Cause *ModelError `json:"-"`
}

// ChainError is returned when every model in a fallback chain has been
// exhausted. Attempts preserves the full trail in invocation order.
type ChainError struct {
	Task     TaskType
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s: all %d models exhausted", e.Task, len(e.Attempts))
}

func (e *ChainError) Unwrap() error { return ErrExtractionFailed }
