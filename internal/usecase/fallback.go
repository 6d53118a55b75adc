package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// ChainConfig holds configuration for the fallback chain executor
type ChainConfig struct {
	// RetriesPerModel is the number of extra attempts a model gets after a
	// retryable failure before the chain moves on
	RetriesPerModel int
	// PerModelTimeout bounds each individual invocation
	PerModelTimeout time.Duration
	// RetryBackoff is the pause between attempts of the same model
	RetryBackoff time.Duration
}

func (c ChainConfig) withDefaults() ChainConfig {
	if c.RetriesPerModel < 0 {
		c.RetriesPerModel = 0
	}
	if c.PerModelTimeout <= 0 {
		c.PerModelTimeout = 60 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// runChain invokes models strictly in order until one yields a reply that
// decode accepts. Timeouts and transport failures earn the same model one
// more try per configured retry; rate limits and invalid responses move to
// the next model immediately. When every model is exhausted the returned
// error is a *domain.ChainError carrying the complete attempt trail.
func runChain[T any](
	ctx context.Context,
	gateway domain.ModelGateway,
	task domain.TaskType,
	models []string,
	payload domain.ModelPayload,
	cfg ChainConfig,
	decode func(reply string) (T, error),
) (T, error) {
	var zero T
	cfg = cfg.withDefaults()

	if len(models) == 0 {
		return zero, &domain.ChainError{Task: task}
	}

	var attempts []domain.Attempt

	for _, modelID := range models {
		for try := 0; try <= cfg.RetriesPerModel; try++ {
			if err := ctx.Err(); err != nil {
				return zero, err
			}

			result, merr := invokeOnce(ctx, gateway, task, modelID, payload, cfg.PerModelTimeout, decode)
			if merr == nil {
				return result, nil
			}

			attempts = append(attempts, domain.Attempt{Model: modelID, Kind: merr.Kind, Cause: merr})

			if !merr.Retryable() || try == cfg.RetriesPerModel {
				log.Printf("[CHAIN] task=%s model=%s failed (%s), moving to next model", task, modelID, merr.Kind)
				break
			}

			log.Printf("[CHAIN] task=%s model=%s failed (%s), retrying", task, modelID, merr.Kind)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(cfg.RetryBackoff):
			}
		}
	}

	log.Printf("[CHAIN] task=%s exhausted all %d models after %d attempts", task, len(models), len(attempts))
	return zero, &domain.ChainError{Task: task, Attempts: attempts}
}

// invokeOnce performs a single bounded invocation and decode. A reply the
// decoder rejects counts as an invalid response from that model.
func invokeOnce[T any](
	ctx context.Context,
	gateway domain.ModelGateway,
	task domain.TaskType,
	modelID string,
	payload domain.ModelPayload,
	timeout time.Duration,
	decode func(reply string) (T, error),
) (T, *domain.ModelError) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := gateway.Invoke(callCtx, modelID, task, payload)
	if err != nil {
		var merr *domain.ModelError
		if errors.As(err, &merr) {
			return zero, merr
		}
		return zero, &domain.ModelError{Kind: domain.KindTransportError, Model: modelID, Err: err}
	}

	result, err := decode(reply)
	if err != nil {
		return zero, &domain.ModelError{Kind: domain.KindInvalidResponse, Model: modelID, Err: err}
	}

	return result, nil
}
