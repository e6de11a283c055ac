package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

const chatChannel = "webchat"

// ChatService is the webapp channel's thin wrapper over the query pipeline.
// The session id doubles as the user id so anonymous web visitors get
// conversation continuity without accounts.
type ChatService struct {
	queries *QueryService
}

// NewChatService wraps the query pipeline for the webchat channel.
func NewChatService(queries *QueryService) *ChatService {
	return &ChatService{queries: queries}
}

// Handle answers one webchat message. A fresh session id is minted when the
// client does not supply one.
func (s *ChatService) Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	result, err := s.queries.Handle(ctx, model.QueryRequest{
		Message: req.Message,
		UserID:  req.SessionID,
		KBID:    req.KBID,
		Channel: chatChannel,
	})
	if err != nil {
		return nil, err
	}
	return &model.ChatResponse{
		SessionID:           result.UserID,
		Reply:               result.AIResponse,
		Sources:             result.Sources,
		ResponseTimeSeconds: result.ResponseTimeSeconds,
		HandoffTriggered:    result.HandoffTriggered,
		TicketNumber:        result.TicketNumber,
	}, nil
}
