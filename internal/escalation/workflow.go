// Package escalation governs conversation status transitions and customer
// contact collection.
package escalation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/notify"
	"github.com/relaydesk-ai/support-orchestrator/internal/store"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
	"github.com/relaydesk-ai/support-orchestrator/pkg/metrics"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User-facing messages for the graceful (non-exceptional) paths.
const (
	MsgNotCollecting = "We're not currently collecting contact details for this conversation."
	MsgInvalidEmail  = "That doesn't look like a valid email address - could you double-check it and try again?"
	MsgEmailReceived = "Thanks! Our support team will reach out to you shortly."

	notificationTurns = 6
)

// Workflow is the conversation status state machine:
// ongoing → escalating → escalated → resolved_ai | resolved_human.
type Workflow struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	notifier      notify.Notifier
	logger        *logger.Logger
}

// NewWorkflow creates the escalation workflow.
func NewWorkflow(conversations store.ConversationStore, messages store.MessageStore, notifier notify.Notifier, log *logger.Logger) *Workflow {
	return &Workflow{
		conversations: conversations,
		messages:      messages,
		notifier:      notifier,
		logger:        log,
	}
}

// BeginEscalation moves an ongoing conversation to escalating. Fired when
// the orchestrator signals shouldEscalate; no email is required yet.
func (w *Workflow) BeginEscalation(ctx context.Context, conversationID uuid.UUID, reason, escalatedBy string) error {
	conv, err := w.conversations.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Status != model.StatusOngoing {
		// Already escalating, escalated or resolved; nothing to do.
		return nil
	}

	if err := w.conversations.UpdateEscalation(ctx, conversationID, model.StatusEscalating, reason, escalatedBy, nil); err != nil {
		return err
	}
	metrics.EscalationsTotal.WithLabelValues("escalating").Inc()

	w.logger.Info("conversation escalating",
		zap.String("conversation_id", conversationID.String()),
		zap.String("reason", reason),
	)
	return nil
}

// CollectEmail records the customer's contact while the conversation is
// escalating, then completes the handoff. Collection outside the escalating
// state and invalid addresses return user-facing messages, not errors.
func (w *Workflow) CollectEmail(ctx context.Context, conversationID uuid.UUID, email string) (string, error) {
	conv, err := w.conversations.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if conv.Status != model.StatusEscalating {
		return MsgNotCollecting, nil
	}

	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return MsgInvalidEmail, nil
	}

	reason := ""
	if conv.EscalationReason != nil {
		reason = *conv.EscalationReason
	}
	if err := w.conversations.UpdateEscalation(ctx, conversationID, model.StatusEscalated, reason, "ai", &email); err != nil {
		return "", err
	}
	metrics.EscalationsTotal.WithLabelValues("escalated").Inc()

	w.sendHandoffNotification(ctx, conv, email)

	return MsgEmailReceived, nil
}

// Resolve moves the conversation to a terminal resolution state.
func (w *Workflow) Resolve(ctx context.Context, conversationID uuid.UUID, status model.Status) error {
	if !status.Resolved() {
		return fmt.Errorf("invalid resolution status %q", status)
	}
	if _, err := w.conversations.Get(ctx, conversationID); err != nil {
		return err
	}
	if err := w.conversations.Resolve(ctx, conversationID, status); err != nil {
		return err
	}
	metrics.EscalationsTotal.WithLabelValues(string(status)).Inc()
	return nil
}

// sendHandoffNotification notifies the support channel with the last turns
// of context. Fire and forget: failure is logged, never surfaced.
func (w *Workflow) sendHandoffNotification(ctx context.Context, conv *model.Conversation, email string) {
	if w.notifier == nil {
		return
	}

	recent, err := w.messages.ListRecent(ctx, conv.ID, notificationTurns)
	if err != nil {
		w.logger.Warn("failed to load context for handoff notification", zap.Error(err))
		recent = nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation %s (ticket %s) escalated.\nCustomer contact: %s\n\nRecent context:\n", conv.ID, conv.TicketNumber, email)
	for _, msg := range recent {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Sender, msg.Content)
	}

	subject := fmt.Sprintf("Human handoff: ticket %s", conv.TicketNumber)
	if err := w.notifier.Notify(ctx, conv.ID.String(), subject, b.String()); err != nil {
		w.logger.Warn("handoff notification failed",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err),
		)
	}
}
