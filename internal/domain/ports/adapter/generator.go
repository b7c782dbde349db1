package adapter

import (
	"context"

	"practicetest-core/internal/domain/model"
)

// GenerateRequest asks a provider for count fresh items for one section.
type GenerateRequest struct {
	Section    model.SectionType
	Subsection string
	Difficulty string
	Count      int
}

// Generator is the on-demand generation collaborator. Calls are slow
// (seconds to minutes) and occasionally fail; the caller decides retry and
// fallback policy. Prompt construction and model selection live behind this
// interface and are opaque to the orchestration core.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]model.PoolItem, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}
