package ai

import (
	"context"
	"time"

	"resumetailor/internal/types"
)

// Generator turns a prompt into cleaned model output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*types.Generation, error)
}

// Provider is a Generator that can also report on its model and breakers.
type Provider interface {
	Generator
	GetModelInfo(ctx context.Context) *ModelInfo
	CircuitBreakerStats() map[string]any
	Close() error
}

// Recorder receives one call per generation attempt that reached the model.
// usage is nil when the call failed or the response carried no metadata.
type Recorder interface {
	RecordGeneration(ctx context.Context, model string, duration time.Duration, usage *types.TokenUsage, err error)
}
