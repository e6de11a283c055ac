package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relaydesk-ai/support-orchestrator/internal/middleware"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/service"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

// ConversationHandler handles conversation lifecycle endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// requestUser resolves the acting user: JWT callers act as themselves,
// API-key callers pass user_id as a query parameter.
func requestUser(r *http.Request) string {
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		return userID
	}
	return r.URL.Query().Get("user_id")
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	views, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": views,
		"count":         len(views),
	})
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation ID format")
		return
	}
	userID := requestUser(r)
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type resolveRequest struct {
	Status       string `json:"status"`
	Satisfaction *int   `json:"satisfaction,omitempty"`
}

// Resolve handles POST /api/v1/conversations/{id}/resolve
func (h *ConversationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation ID format")
		return
	}
	userID := requestUser(r)
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := model.Status(req.Status)
	if status == "" {
		status = model.StatusResolvedHuman
	}

	if err := h.service.Resolve(r.Context(), userID, id, status, req.Satisfaction); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": id.String(),
		"status":          string(status),
	})
}

type contactRequest struct {
	Email string `json:"email"`
}

// Contact handles POST /api/v1/conversations/{id}/contact
func (h *ConversationHandler) Contact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation ID format")
		return
	}
	userID := requestUser(r)
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.service.CollectContact(r.Context(), userID, id, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": id.String(),
		"message":         message,
	})
}
