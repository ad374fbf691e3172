package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// SyncService runs a full fetch-and-upsert pass against the builder feed.
type SyncService interface {
	Sync(ctx context.Context) (domain.SyncReport, error)
}

// SyncHandler exposes the sync trigger and the persisted sync state.
type SyncHandler struct {
	service SyncService
	state   domain.SyncStateStore
	logger  *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(service SyncService, state domain.SyncStateStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		state:   state,
		logger:  logHandler(logger, "sync"),
	}
}

// TriggerSync handles POST /api/sync. It runs a sync to completion and
// reports the run's counters and updated watermark.
//
// Auth failures map to 401 with the remediation message, an already-running
// sync maps to 409, and anything else maps to 500 with a correlation ID.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Sync(r.Context())
	if err != nil {
		var authErr *domain.AuthError
		switch {
		case errors.As(err, &authErr):
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"ok":            false,
				"error":         authErr.Message,
				"status":        authErr.Status,
				"correlationId": authErr.CorrelationID,
			})
		case errors.Is(err, domain.ErrSyncRunning):
			writeJSON(w, http.StatusConflict, map[string]any{
				"ok":    false,
				"error": "A sync run is already in progress.",
			})
		default:
			writeInternalError(w, h.logger, "sync", err.Error(), err)
		}
		return
	}

	message := "Sync completed."
	if report.Fetched == 0 {
		message = "Sync completed: 0 builder trades returned."
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                  true,
		"message":             message,
		"fetched":             report.Fetched,
		"upserted":            report.Upserted,
		"lastSyncedMatchTime": isoOrNil(report.State.LastSyncedMatchTime),
		"lastSyncedCursor":    strOrNil(report.State.LastSyncedCursor),
		"lastRunAt":           isoOrNil(report.State.LastRunAt),
	})
}

// GetSyncState handles GET /api/sync. A missing state row reads as an empty
// state rather than an error.
func (h *SyncHandler) GetSyncState(w http.ResponseWriter, r *http.Request) {
	state, err := h.state.Get(r.Context())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeInternalError(w, h.logger, "sync state read", "Failed to read sync state", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                  true,
		"lastSyncedMatchTime": isoOrNil(state.LastSyncedMatchTime),
		"lastSyncedCursor":    strOrNil(state.LastSyncedCursor),
		"lastRunAt":           isoOrNil(state.LastRunAt),
	})
}
