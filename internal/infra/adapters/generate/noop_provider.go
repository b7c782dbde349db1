package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
)

var _ adapter.Generator = (*NoopProvider)(nil)

// NoopProvider fabricates placeholder questions instantly. Dev mode only.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) Generate(_ context.Context, req adapter.GenerateRequest) ([]model.PoolItem, error) {
	now := time.Now()
	items := make([]model.PoolItem, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		payload, _ := json.Marshal(map[string]string{
			"question": fmt.Sprintf("placeholder %s question #%d", req.Section, i+1),
			"answer":   "n/a",
		})
		items = append(items, model.PoolItem{
			ID:          uuid.NewString(),
			ContentType: "question",
			Section:     req.Section,
			Subsection:  req.Subsection,
			Difficulty:  req.Difficulty,
			Payload:     payload,
			CreatedAt:   now,
		})
	}
	return items, nil
}
