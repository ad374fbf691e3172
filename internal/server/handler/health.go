package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks a backing service's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	db     Pinger // optional
	blob   Pinger // optional, set when trade archival is enabled
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. Either pinger may be nil, in
// which case that component is skipped and the endpoint only reports process
// liveness.
func NewHealthHandler(db, blob Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, blob: blob, logger: logHandler(logger, "health")}
}

// HealthCheck handles GET /api/health. A failing component ping degrades the
// status but keeps the endpoint at 200 so load balancers don't recycle the
// process for a transient backend hiccup.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := map[string]string{}

	probe := func(name string, p Pinger) {
		if p == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("component ping failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			checks[name] = "error"
			status = "degraded"
			return
		}
		checks[name] = "ok"
	}

	probe("database", h.db)
	probe("storage", h.blob)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
