package repository

import (
	"context"

	"practicetest-core/internal/domain/model"
)

// ClaimFilter narrows which pool items are eligible for a claim. Subsection
// and Difficulty are optional; empty means "any".
type ClaimFilter struct {
	Section    model.SectionType
	Subsection string
	Difficulty string
}

type PoolRepository interface {
	// Insert appends items to the shared pool. Items are immutable afterwards.
	Insert(ctx context.Context, tx Tx, items []model.PoolItem) error

	// ClaimUnused atomically claims up to count items this user has never been
	// served before, newest first. Each claimed item gets a ledger row; the
	// claim of an individual item either inserts that row or is skipped on
	// conflict, so the same (user, item) pair can never be claimed twice even
	// under unbounded concurrency. Returning fewer than count items is not an
	// error; the caller treats the shortfall as a deficit.
	ClaimUnused(ctx context.Context, userID string, f ClaimFilter, count int) ([]model.PoolItem, error)

	// RecordUsage writes ledger rows for items delivered outside the claim
	// path (freshly generated content), with the same insert-or-skip
	// semantics.
	RecordUsage(ctx context.Context, tx Tx, userID string, items []model.PoolItem, usageType string) error

	// CountUnused reports how many eligible items remain for this user.
	CountUnused(ctx context.Context, userID string, f ClaimFilter) (int, error)
}
