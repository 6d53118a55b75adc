package openrouter

import (
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// LogRecorder writes one log line per model invocation
type LogRecorder struct{}

func (LogRecorder) Record(modelID string, task domain.TaskType, duration time.Duration, outcome domain.Outcome) {
	log.Printf("[GATEWAY] model=%s task=%s duration=%s outcome=%s", modelID, task, duration.Round(time.Millisecond), outcome)
}

// NopRecorder discards all observations
type NopRecorder struct{}

func (NopRecorder) Record(string, domain.TaskType, time.Duration, domain.Outcome) {}
