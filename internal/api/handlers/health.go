package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/taskboard/internal/api/httpx"
	repo "github.com/baharkarakas/taskboard/internal/repository"
)

type HealthHandler struct {
	store   repo.Pinger
	timeout time.Duration
}

func NewHealthHandler(store repo.Pinger, timeout time.Duration) *HealthHandler {
	return &HealthHandler{store: store, timeout: timeout}
}

// Health reports 503 when the store cannot be reached within the timeout.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "health check failed", "err", err)
		httpx.Message(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	httpx.OK(w, map[string]string{"store": "up"})
}
