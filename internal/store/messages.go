package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

// MessageStore persists conversation messages.
type MessageStore interface {
	Create(ctx context.Context, conversationID uuid.UUID, sender model.Sender, content string) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error)
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]model.Message, error)
}

type messageStore struct {
	db *gorm.DB
}

// NewMessageStore creates a message repository.
func NewMessageStore(db *gorm.DB) MessageStore {
	return &messageStore{db: db}
}

func (s *messageStore) Create(ctx context.Context, conversationID uuid.UUID, sender model.Sender, content string) (*model.Message, error) {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("%w: create message: %v", apperr.ErrPersistence, err)
	}
	return msg, nil
}

// ListByConversation returns all messages ordered by timestamp ascending.
func (s *messageStore) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", apperr.ErrPersistence, err)
	}
	return msgs, nil
}

// ListRecent returns the last limit messages in ascending order.
func (s *messageStore) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list recent messages: %v", apperr.ErrPersistence, err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
