package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/archiva-labs/doclib/internal/api"
)

// Pinger checks database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports overall service status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Live reports process liveness
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready reports whether the service can serve traffic
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		api.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "ready"})
}
