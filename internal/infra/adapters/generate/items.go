package generate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
)

// buildPrompt keeps the instruction surface deliberately small; the real
// prompt engineering lives with the provider configuration, not here.
func buildPrompt(req adapter.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d practice test questions for the %s section", req.Count, req.Section)
	if req.Subsection != "" {
		fmt.Fprintf(&b, ", subsection %s", req.Subsection)
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&b, ", difficulty %s", req.Difficulty)
	}
	b.WriteString(`. Respond with a JSON object {"questions": [...]} where each array entry is one self-contained question object.`)
	return b.String()
}

// parseItems converts a provider's JSON reply into pool items. Each question
// object is kept opaque as the item payload.
func parseItems(content string, req adapter.GenerateRequest) ([]model.PoolItem, error) {
	var out struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("parse generated content: %w", err)
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("generated content held no questions")
	}
	now := time.Now()
	items := make([]model.PoolItem, 0, len(out.Questions))
	for _, q := range out.Questions {
		items = append(items, model.PoolItem{
			ID:          uuid.NewString(),
			ContentType: "question",
			Section:     req.Section,
			Subsection:  req.Subsection,
			Difficulty:  req.Difficulty,
			Payload:     q,
			CreatedAt:   now,
		})
	}
	if len(items) > req.Count {
		items = items[:req.Count]
	}
	return items, nil
}
