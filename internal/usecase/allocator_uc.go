package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/repository"
	"practicetest-core/internal/infra/metrics"
)

// Allocator hands out never-seen-before pool items per user. The atomic
// insert-or-skip on the usage ledger lives in the repository; this layer adds
// the deficit semantics and metrics.
type Allocator struct {
	pool repository.PoolRepository
	log  *zerolog.Logger
}

func NewAllocator(pool repository.PoolRepository, log *zerolog.Logger) *Allocator {
	return &Allocator{pool: pool, log: log}
}

// Claim returns up to count items plus the deficit the pool could not cover.
// A deficit is not an error; it routes the remainder to on-demand generation.
func (a *Allocator) Claim(ctx context.Context, userID string, f repository.ClaimFilter, count int) ([]model.PoolItem, int, error) {
	items, err := a.pool.ClaimUnused(ctx, userID, f, count)
	if err != nil {
		return nil, 0, err
	}
	deficit := count - len(items)
	metrics.ObservePoolClaim(string(f.Section), len(items), count)
	a.log.Debug().
		Str("user_id", userID).
		Str("section", string(f.Section)).
		Int("claimed", len(items)).
		Int("deficit", deficit).
		Msg("pool claim")
	return items, deficit, nil
}
