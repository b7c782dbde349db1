package repository

import (
	"context"
	"time"

	"practicetest-core/internal/domain/model"
)

type QuotaRepository interface {
	// GetOrReset returns the user's daily counters, atomically resetting them
	// to zero first if the stored date is older than today. The reset happens
	// at most once per calendar day even under concurrent first-of-the-day
	// calls.
	GetOrReset(ctx context.Context, userID string, today time.Time) (*model.DailyLimit, error)

	// Commit atomically increments the user's counters by the given amounts.
	// Invoked only after content has actually been produced.
	Commit(ctx context.Context, userID string, today time.Time, counts map[model.SectionType]int) error
}
