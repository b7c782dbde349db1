package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"practicetest-core/internal/domain"
	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
	"practicetest-core/internal/infra/metrics"
)

var _ adapter.Generator = (*MultiProvider)(nil)

// MultiProvider walks its providers in configured order. Each provider gets
// maxRetries attempts with backoff in between; only when every provider is
// exhausted does the caller see the terminal domain.ErrGenerationProvider.
type MultiProvider struct {
	providers  []adapter.Generator
	maxRetries int
	backoff    time.Duration
	log        *zerolog.Logger
}

func NewMultiProvider(providers []adapter.Generator, maxRetries int, backoff time.Duration, log *zerolog.Logger) *MultiProvider {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &MultiProvider{providers: providers, maxRetries: maxRetries, backoff: backoff, log: log}
}

func (m *MultiProvider) Name() string { return "multi" }

func (m *MultiProvider) Generate(ctx context.Context, req adapter.GenerateRequest) ([]model.PoolItem, error) {
	var lastErr error
	for _, p := range m.providers {
		for attempt := 1; attempt <= m.maxRetries; attempt++ {
			start := time.Now()
			items, err := p.Generate(ctx, req)
			metrics.ObserveGeneration(p.Name(), time.Since(start).Seconds(), err == nil)
			if err == nil {
				return items, nil
			}
			lastErr = err
			m.log.Warn().Err(err).
				Str("provider", p.Name()).
				Int("attempt", attempt).
				Str("section", string(req.Section)).
				Msg("generation attempt failed")

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < m.maxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(m.backoff):
				}
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrGenerationProvider, lastErr)
}
