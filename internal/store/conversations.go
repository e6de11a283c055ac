package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

// Ticket codes use an unambiguous alphabet (no O/0, I/1 lookalikes).
const (
	ticketAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	ticketLength   = 8
)

// ConversationStore persists conversations.
type ConversationStore interface {
	Create(ctx context.Context, userID, kbID, channel string) (*model.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindOngoing(ctx context.Context, userID, kbID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error
	UpdateEscalation(ctx context.Context, id uuid.UUID, status model.Status, reason, escalatedBy string, contact *string) error
	Resolve(ctx context.Context, id uuid.UUID, status model.Status) error
}

type conversationStore struct {
	db *gorm.DB
}

// NewConversationStore creates a conversation repository.
func NewConversationStore(db *gorm.DB) ConversationStore {
	return &conversationStore{db: db}
}

func (s *conversationStore) Create(ctx context.Context, userID, kbID, channel string) (*model.Conversation, error) {
	if channel == "" {
		channel = "api"
	}
	conv := &model.Conversation{
		ID:           uuid.Must(uuid.NewV7()),
		UserID:       userID,
		KBID:         kbID,
		Status:       model.StatusOngoing,
		TicketNumber: NewTicketNumber(),
		Channel:      channel,
		StartedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, fmt.Errorf("%w: create conversation: %v", apperr.ErrPersistence, err)
	}
	return conv, nil
}

func (s *conversationStore) Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get conversation: %v", apperr.ErrPersistence, err)
	}
	return &conv, nil
}

// FindOngoing returns the most recently started ongoing conversation for the
// (user, kb) pair, or ErrNotFound.
func (s *conversationStore) FindOngoing(ctx context.Context, userID, kbID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND kb_id = ? AND status = ?", userID, kbID, model.StatusOngoing).
		Order("started_at DESC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no ongoing conversation", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find ongoing conversation: %v", apperr.ErrPersistence, err)
	}
	return &conv, nil
}

func (s *conversationStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", apperr.ErrPersistence, err)
	}
	return convs, nil
}

func (s *conversationStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	err := s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("%w: update status: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *conversationStore) UpdateEscalation(ctx context.Context, id uuid.UUID, status model.Status, reason, escalatedBy string, contact *string) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":            status,
		"escalated_at":      &now,
		"escalated_by":      &escalatedBy,
		"escalation_reason": &reason,
	}
	if contact != nil {
		updates["contact"] = contact
	}
	err := s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("%w: update escalation: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *conversationStore) Resolve(ctx context.Context, id uuid.UUID, status model.Status) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "resolved_at": &now}).Error
	if err != nil {
		return fmt.Errorf("%w: resolve conversation: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// NewTicketNumber generates a fixed-length human-readable ticket code.
func NewTicketNumber() string {
	buf := make([]byte, ticketLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid-derived code rather than panicking in the request path.
		return "TKT-" + uuid.NewString()[:ticketLength]
	}
	for i := range buf {
		buf[i] = ticketAlphabet[int(buf[i])%len(ticketAlphabet)]
	}
	return "TKT-" + string(buf)
}
