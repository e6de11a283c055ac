// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/middleware"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/service"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
	"github.com/relaydesk-ai/support-orchestrator/pkg/metrics"
)

// QueryHandler handles the primary query endpoint.
type QueryHandler struct {
	queries *service.QueryService
	logger  *logger.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queries *service.QueryService, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		queries: queries,
		logger:  log,
	}
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := middleware.GetIdentity(ctx)
	started := time.Now()

	var req model.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// JWT callers are bound to their own identity; API-key callers name
	// the user in the body.
	if identity.UserID != "" {
		req.UserID = identity.UserID
	}
	if req.KBID == "" {
		req.KBID = identity.KBID
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.queries.Handle(ctx, req)
	if err != nil {
		h.logger.Error("query pipeline failed",
			zap.String("user_id", req.UserID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		metrics.RecordQuery(identity.OrgID, "error", time.Since(started).Seconds())
		writeServiceError(w, err)
		return
	}

	metrics.RecordQuery(identity.OrgID, "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, resp)
}
