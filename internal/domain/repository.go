package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for fingerprint-keyed result caching.
// Put overwrites any existing entry for the same (fingerprint, task) pair.
type CacheRepository interface {
	Get(ctx context.Context, fingerprint string, task TaskType) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	Delete(ctx context.Context, fingerprint string, task TaskType) error
}

// ModelPayload is the input for a single model invocation. Image is nil for
// text-only tasks such as normalization.
type ModelPayload struct {
	Prompt   string
	Image    []byte
	MimeType string
}

// ModelGateway invokes exactly one AI model once and returns the raw text of
// its reply. Failures are always *ModelError.
type ModelGateway interface {
	Invoke(ctx context.Context, modelID string, task TaskType, payload ModelPayload) (string, error)
}

// Recorder receives one observation per model invocation
type Recorder interface {
	Record(modelID string, task TaskType, duration time.Duration, outcome Outcome)
}
