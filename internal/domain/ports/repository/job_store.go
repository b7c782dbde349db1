package repository

import (
	"context"

	"practicetest-core/internal/domain/model"
)

// JobStore holds job snapshots with bounded retention after a terminal state.
//
// Concurrency contract: each section task only mutates its own SectionProgress
// and only the orchestrator writes Status, so mutations never conflict
// logically; Update serialises them physically. The store additionally
// enforces two invariants regardless of what the mutate function does:
// section percentages never decrease, and terminal sections and terminal jobs
// are never rewritten.
type JobStore interface {
	// Create persists the initial snapshot. The job must be visible to Get
	// before Create returns, so the client's first poll can never miss it.
	Create(ctx context.Context, job *model.Job) error

	// Get returns the current snapshot or domain.ErrJobNotFound when the job
	// is unknown or its retention TTL has expired.
	Get(ctx context.Context, id string) (*model.Job, error)

	// Update applies mutate to the snapshot under a per-job lock and persists
	// the result. Returns domain.ErrJobNotFound for unknown jobs.
	Update(ctx context.Context, id string, mutate func(*model.Job) error) error
}
