package handler

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/relaydesk-ai/support-orchestrator/internal/notify"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db       *gorm.DB
	notifier *notify.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, notifier *notify.Client) *HealthHandler {
	return &HealthHandler{
		db:       db,
		notifier: notifier,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unavailable",
			})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
	}

	if h.notifier != nil && !h.notifier.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "notification channel not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
