package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

// MetricsStore upserts per-conversation turn metrics.
type MetricsStore interface {
	Upsert(ctx context.Context, m *model.TurnMetrics) error
	SetSatisfaction(ctx context.Context, conversationID uuid.UUID, score int) error
	Get(ctx context.Context, conversationID uuid.UUID) (*model.TurnMetrics, error)
}

type metricsStore struct {
	db *gorm.DB
}

// NewMetricsStore creates a metrics repository.
func NewMetricsStore(db *gorm.DB) MetricsStore {
	return &metricsStore{db: db}
}

// Upsert writes the metrics row keyed on conversation id. Repeat turns on
// the same conversation overwrite timing and flags, never duplicate rows.
func (s *metricsStore) Upsert(ctx context.Context, m *model.TurnMetrics) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.Must(uuid.NewV7())
	}
	m.UpdatedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"response_time_seconds", "ai_responses", "handoff_triggered", "analytics", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("%w: upsert metrics: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *metricsStore) SetSatisfaction(ctx context.Context, conversationID uuid.UUID, score int) error {
	err := s.db.WithContext(ctx).
		Model(&model.TurnMetrics{}).
		Where("conversation_id = ?", conversationID).
		Update("satisfaction_score", score).Error
	if err != nil {
		return fmt.Errorf("%w: set satisfaction: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *metricsStore) Get(ctx context.Context, conversationID uuid.UUID) (*model.TurnMetrics, error) {
	var m model.TurnMetrics
	err := s.db.WithContext(ctx).First(&m, "conversation_id = ?", conversationID).Error
	if err != nil {
		return nil, fmt.Errorf("%w: get metrics: %v", apperr.ErrPersistence, err)
	}
	return &m, nil
}
