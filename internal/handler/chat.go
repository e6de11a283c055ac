package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/middleware"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/service"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

// ChatHandler handles the webchat channel endpoint.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: log,
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chat.Handle(ctx, req)
	if err != nil {
		h.logger.Error("chat pipeline failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
