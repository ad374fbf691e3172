package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// ConnectionChecker probes the builder feed without mutating any state.
type ConnectionChecker interface {
	CheckConnection(ctx context.Context) domain.ConnectionStatus
}

// ConnectionHandler exposes the feed connectivity probe used by the
// dashboard's status indicator.
type ConnectionHandler struct {
	checker ConnectionChecker
	logger  *slog.Logger
}

// NewConnectionHandler creates a ConnectionHandler.
func NewConnectionHandler(checker ConnectionChecker, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		checker: checker,
		logger:  logHandler(logger, "connection"),
	}
}

// CheckConnection handles GET /api/connection. The probe itself never fails;
// an unreachable feed reports as 503 with the status body.
func (h *ConnectionHandler) CheckConnection(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckConnection(r.Context())

	code := http.StatusOK
	if !status.Connected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
