// Package service composes the stores, retrieval gateway, and orchestrator
// into the per-channel query pipelines.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/contextbuild"
	"github.com/relaydesk-ai/support-orchestrator/internal/escalation"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/relevance"
	"github.com/relaydesk-ai/support-orchestrator/internal/retrieval"
	"github.com/relaydesk-ai/support-orchestrator/internal/store"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
	"github.com/relaydesk-ai/support-orchestrator/pkg/metrics"
)

const defaultChannel = "api"

// Responder produces a reviewed assistant response for a prompt with
// conversation history and retrieved context.
type Responder interface {
	Generate(ctx context.Context, prompt, kbContext string, history []model.Message) (*model.AgentResponse, error)
}

// QueryOptions tunes the pipeline's retrieval and assembly stages.
type QueryOptions struct {
	RetrievalLimit  int
	SimilarityFloor float64
	MaxContextBytes int
	MaxSources      int
	Org             relevance.OrgContext
	DefaultKBID     string
}

// QueryService runs one full turn: conversation resolution, retrieval
// decision, context assembly, generation, escalation, persistence, metrics.
type QueryService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	turnMetrics   store.MetricsStore
	classifier    *relevance.Classifier
	searcher      *retrieval.CachedSearcher
	assembler     *contextbuild.Assembler
	responder     Responder
	escalations   *escalation.Workflow
	opts          QueryOptions
	logger        *logger.Logger
}

// NewQueryService wires the pipeline.
func NewQueryService(
	conversations store.ConversationStore,
	messages store.MessageStore,
	turnMetrics store.MetricsStore,
	classifier *relevance.Classifier,
	searcher *retrieval.CachedSearcher,
	assembler *contextbuild.Assembler,
	responder Responder,
	escalations *escalation.Workflow,
	opts QueryOptions,
	log *logger.Logger,
) *QueryService {
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = 5
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = 5
	}
	if opts.MaxContextBytes <= 0 {
		opts.MaxContextBytes = 8000
	}
	if opts.DefaultKBID == "" {
		opts.DefaultKBID = "default"
	}
	return &QueryService{
		conversations: conversations,
		messages:      messages,
		turnMetrics:   turnMetrics,
		classifier:    classifier,
		searcher:      searcher,
		assembler:     assembler,
		responder:     responder,
		escalations:   escalations,
		opts:          opts,
		logger:        log,
	}
}

// Handle processes one user turn end to end.
func (s *QueryService) Handle(ctx context.Context, req model.QueryRequest) (*model.QueryResponse, error) {
	started := time.Now()

	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", apperr.ErrValidation)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperr.ErrValidation)
	}
	kbID := req.KBID
	if kbID == "" {
		kbID = s.opts.DefaultKBID
	}
	channel := req.Channel
	if channel == "" {
		channel = defaultChannel
	}

	conv, err := s.resolveConversation(ctx, req, kbID, channel)
	if err != nil {
		return nil, err
	}

	// Collected before this turn's user message is persisted, so the
	// prompt itself never appears in its own history.
	history, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading history: %v", apperr.ErrPersistence, err)
	}

	kbContext, sources, err := s.assembleContext(ctx, req.Message, kbID)
	if err != nil {
		return nil, err
	}

	agent, err := s.responder.Generate(ctx, req.Message, kbContext, history)
	if err != nil {
		return nil, err
	}

	// The handoff promise in the response must be backed by the status
	// transition; a failed write here fails the turn.
	if agent.ShouldEscalate {
		if err := s.escalations.BeginEscalation(ctx, conv.ID, agent.EscalationReason, "ai"); err != nil {
			return nil, err
		}
	}

	if _, err := s.messages.Create(ctx, conv.ID, model.SenderUser, req.Message); err != nil {
		return nil, fmt.Errorf("%w: persisting user message: %v", apperr.ErrPersistence, err)
	}
	if _, err := s.messages.Create(ctx, conv.ID, model.SenderAI, agent.Output); err != nil {
		return nil, fmt.Errorf("%w: persisting ai message: %v", apperr.ErrPersistence, err)
	}
	metrics.MessagesTotal.WithLabelValues(kbID, string(model.SenderUser)).Inc()
	metrics.MessagesTotal.WithLabelValues(kbID, string(model.SenderAI)).Inc()

	elapsed := time.Since(started).Seconds()
	s.recordTurnMetrics(ctx, conv.ID, elapsed, len(history)/2+1, agent.ShouldEscalate)

	resp := &model.QueryResponse{
		ConversationID:      conv.ID.String(),
		UserID:              req.UserID,
		UserMessage:         req.Message,
		AIResponse:          agent.Output,
		Sources:             sources,
		ResponseTimeSeconds: elapsed,
		HandoffTriggered:    agent.ShouldEscalate,
	}
	if agent.ShouldEscalate {
		resp.TicketNumber = conv.TicketNumber
	}
	return resp, nil
}

// resolveConversation finds the conversation this turn belongs to. An
// explicit id must exist and belong to the requesting user; otherwise the
// most recent ongoing conversation for (user, kb) is reused, or a new one
// created. Concurrent first turns may each create a conversation; the later
// one wins subsequent reuse.
func (s *QueryService) resolveConversation(ctx context.Context, req model.QueryRequest, kbID, channel string) (*model.Conversation, error) {
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid conversation_id", apperr.ErrValidation)
		}
		conv, err := s.conversations.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv.UserID != req.UserID {
			return nil, fmt.Errorf("%w: conversation belongs to another user", apperr.ErrAccessDenied)
		}
		return conv, nil
	}

	conv, err := s.conversations.FindOngoing(ctx, req.UserID, kbID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	conv, err = s.conversations.Create(ctx, req.UserID, kbID, channel)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsTotal.WithLabelValues(kbID).Inc()
	return conv, nil
}

// assembleContext decides whether retrieval is warranted and, if so, turns
// the search results into a bounded context block with source citations.
// Gateway failures and timeouts propagate; an answer must never pretend it
// searched when the search broke.
func (s *QueryService) assembleContext(ctx context.Context, message, kbID string) (string, []model.Source, error) {
	if !s.classifier.ShouldSearch(message, s.opts.Org) {
		return contextbuild.NoContextSentinel, nil, nil
	}

	candidates, err := s.searcher.GetOrSearch(ctx, message, kbID, s.opts.RetrievalLimit)
	if err != nil {
		return "", nil, err
	}

	kbContext, sources := s.assembler.Assemble(ctx, candidates, s.opts.SimilarityFloor, s.opts.MaxContextBytes, s.opts.MaxSources)
	return kbContext, sources, nil
}

// recordTurnMetrics upserts the per-conversation analytics row. Metrics are
// best effort and never fail the turn.
func (s *QueryService) recordTurnMetrics(ctx context.Context, conversationID uuid.UUID, elapsed float64, aiResponses int, handoff bool) {
	m := &model.TurnMetrics{
		ConversationID:      conversationID,
		ResponseTimeSeconds: elapsed,
		AIResponses:         aiResponses,
		HandoffTriggered:    handoff,
	}
	if err := s.turnMetrics.Upsert(ctx, m); err != nil {
		s.logger.Warn("turn metrics upsert failed",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err),
		)
	}
}
