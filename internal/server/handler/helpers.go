// Package handler implements the dashboard API endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeInternalError logs the full error server-side under a fresh
// correlation ID and returns only the generic message plus that ID to the
// client.
func writeInternalError(w http.ResponseWriter, logger *slog.Logger, scope, clientMsg string, err error) {
	correlationID := uuid.New().String()
	logger.Error(scope+" failed",
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok":            false,
		"error":         clientMsg + " (correlationId " + correlationID + ")",
		"correlationId": correlationID,
	})
}

// isoOrNil formats a nullable time as RFC 3339 for JSON, keeping null null.
func isoOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// strOrNil maps empty strings to JSON null for nullable response fields.
func strOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
