package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/escalation"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/store"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

const maxListLimit = 50

// ConversationService exposes conversation lifecycle operations outside the
// query pipeline: listing, resolution, and contact collection.
type ConversationService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	turnMetrics   store.MetricsStore
	escalations   *escalation.Workflow
	logger        *logger.Logger
}

// NewConversationService creates the conversation service.
func NewConversationService(
	conversations store.ConversationStore,
	messages store.MessageStore,
	turnMetrics store.MetricsStore,
	escalations *escalation.Workflow,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		turnMetrics:   turnMetrics,
		escalations:   escalations,
		logger:        log,
	}
}

// List returns the user's most recent conversations with their messages.
func (s *ConversationService) List(ctx context.Context, userID string, limit int) ([]model.ConversationView, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperr.ErrValidation)
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	convs, err := s.conversations.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]model.ConversationView, 0, len(convs))
	for _, conv := range convs {
		msgs, err := s.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.ConversationView{Conversation: conv, Messages: msgs})
	}
	return views, nil
}

// Get returns one conversation with its messages, enforcing ownership.
func (s *ConversationService) Get(ctx context.Context, userID string, id uuid.UUID) (*model.ConversationView, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("%w: conversation belongs to another user", apperr.ErrAccessDenied)
	}
	msgs, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ConversationView{Conversation: *conv, Messages: msgs}, nil
}

// Resolve marks the conversation resolved and records the optional
// satisfaction score.
func (s *ConversationService) Resolve(ctx context.Context, userID string, id uuid.UUID, status model.Status, satisfaction *int) error {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return fmt.Errorf("%w: conversation belongs to another user", apperr.ErrAccessDenied)
	}

	if err := s.escalations.Resolve(ctx, id, status); err != nil {
		return err
	}
	if satisfaction != nil {
		if *satisfaction < 1 || *satisfaction > 5 {
			return fmt.Errorf("%w: satisfaction score must be between 1 and 5", apperr.ErrValidation)
		}
		if err := s.turnMetrics.SetSatisfaction(ctx, id, *satisfaction); err != nil {
			return err
		}
	}
	return nil
}

// CollectContact records the customer's email while the conversation is
// escalating. The returned string is always a user-facing message.
func (s *ConversationService) CollectContact(ctx context.Context, userID string, id uuid.UUID, email string) (string, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if conv.UserID != userID {
		return "", fmt.Errorf("%w: conversation belongs to another user", apperr.ErrAccessDenied)
	}
	return s.escalations.CollectEmail(ctx, id, email)
}
