package model

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser       Sender = "user"
	SenderAI         Sender = "ai"
	SenderHumanAgent Sender = "human_agent"
)

// Message is one turn in a conversation. Messages are immutable once created
// and ordered by CreatedAt ascending.
type Message struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;index"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	KBID           string `json:"kb_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Channel        string `json:"channel,omitempty"`
}

// QueryResponse is the result of one pass through the query pipeline.
type QueryResponse struct {
	ConversationID      string   `json:"conversation_id"`
	UserID              string   `json:"user_id"`
	UserMessage         string   `json:"user_message"`
	AIResponse          string   `json:"ai_response"`
	Sources             []Source `json:"sources"`
	ResponseTimeSeconds float64  `json:"response_time_seconds"`
	HandoffTriggered    bool     `json:"handoff_triggered"`
	TicketNumber        string   `json:"ticket_number,omitempty"`
}

// ChatRequest is the body of POST /api/v1/chat (webapp channel wrapper).
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	KBID      string `json:"kb_id,omitempty"`
}

// ChatResponse is the webapp channel's view of a query result.
type ChatResponse struct {
	SessionID           string   `json:"session_id"`
	Reply               string   `json:"reply"`
	Sources             []Source `json:"sources"`
	ResponseTimeSeconds float64  `json:"response_time_seconds"`
	HandoffTriggered    bool     `json:"handoff_triggered"`
	TicketNumber        string   `json:"ticket_number,omitempty"`
}
