// Package model defines data structures for the support orchestration engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusOngoing       Status = "ongoing"
	StatusEscalating    Status = "escalating"
	StatusEscalated     Status = "escalated"
	StatusResolvedAI    Status = "resolved_ai"
	StatusResolvedHuman Status = "resolved_human"
)

// Resolved reports whether the status is a terminal resolution.
func (s Status) Resolved() bool {
	return s == StatusResolvedAI || s == StatusResolvedHuman
}

// Conversation is a logical thread of turns between one user and the
// assistant, scoped to one knowledge base. At most one ongoing conversation
// per (user, kb) pair is treated as active for message routing.
type Conversation struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       string    `json:"user_id" gorm:"index:idx_conversations_user_kb"`
	KBID         string    `json:"kb_id" gorm:"index:idx_conversations_user_kb"`
	Status       Status    `json:"status" gorm:"index"`
	TicketNumber string    `json:"ticket_number"`
	Channel      string    `json:"channel"`
	StartedAt    time.Time `json:"started_at"`

	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EscalatedBy      *string    `json:"escalated_by,omitempty"`
	EscalationReason *string    `json:"escalation_reason,omitempty"`
	Contact          *string    `json:"contact,omitempty"`
}

// ConversationView is a conversation with its messages, as returned by the
// listing endpoint.
type ConversationView struct {
	Conversation
	Messages []Message `json:"messages"`
}
