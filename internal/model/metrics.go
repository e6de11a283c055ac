package model

import (
	"time"

	"github.com/google/uuid"
)

// TurnMetrics is the per-conversation analytics aggregate. Exactly one row
// per conversation, upserted on every turn.
type TurnMetrics struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID      uuid.UUID `json:"conversation_id" gorm:"type:uuid;uniqueIndex"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	AIResponses         int       `json:"ai_responses"`
	HandoffTriggered    bool      `json:"handoff_triggered"`
	SatisfactionScore   *int      `json:"satisfaction_score,omitempty"`
	Analytics           string    `json:"analytics,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// FileMeta is origin metadata for a retrieved chunk, used for source
// attribution in context assembly.
type FileMeta struct {
	ID   string `json:"id" gorm:"primaryKey"`
	KBID string `json:"kb_id" gorm:"index"`
	Name string `json:"name"`
}
