package model

import (
	"encoding/json"
	"time"
)

type SectionType string

const (
	SectionQuantitative SectionType = "quantitative"
	SectionReading      SectionType = "reading"
	SectionWriting      SectionType = "writing"
)

func (s SectionType) Valid() bool {
	switch s {
	case SectionQuantitative, SectionReading, SectionWriting:
		return true
	}
	return false
}

// PoolItem is one pre-generated question. Items are immutable once created and
// shared read-only across all users; per-user exclusivity is enforced by the
// usage ledger, never by mutating the item.
type PoolItem struct {
	ID          string          `json:"id"`
	ContentType string          `json:"content_type"`
	Section     SectionType     `json:"section"`
	Subsection  string          `json:"subsection,omitempty"`
	Difficulty  string          `json:"difficulty,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UsageType distinguishes how an item reached a user's ledger.
const (
	UsagePool      = "pool"
	UsageGenerated = "generated"
)

// UsageRecord is one row of the permanent per-user ledger. Append-only, never
// deleted; the (UserID, QuestionID) uniqueness is the sole mechanism that
// guarantees a user is never served the same item twice.
type UsageRecord struct {
	UserID      string    `json:"user_id"`
	QuestionID  string    `json:"question_id"`
	ContentType string    `json:"content_type"`
	UsageType   string    `json:"usage_type"`
	CreatedAt   time.Time `json:"created_at"`
}
