package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSyncService struct {
	report domain.SyncReport
	err    error
}

func (s *stubSyncService) Sync(ctx context.Context) (domain.SyncReport, error) {
	return s.report, s.err
}

type stubStateStore struct {
	state domain.SyncState
	err   error
}

func (s *stubStateStore) Load(ctx context.Context) (domain.SyncState, error) { return s.state, s.err }
func (s *stubStateStore) Save(ctx context.Context, st domain.SyncState) error {
	s.state = st
	return nil
}
func (s *stubStateStore) Get(ctx context.Context) (domain.SyncState, error) { return s.state, s.err }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestTriggerSyncOK(t *testing.T) {
	matchTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cursor := "c9"
	runAt := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)

	h := NewSyncHandler(&stubSyncService{
		report: domain.SyncReport{
			Fetched:  7,
			Upserted: 6,
			State: domain.SyncState{
				LastSyncedMatchTime: &matchTime,
				LastSyncedCursor:    &cursor,
				LastRunAt:           &runAt,
			},
		},
	}, &stubStateStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != true || body["message"] != "Sync completed." {
		t.Errorf("body = %v", body)
	}
	if body["fetched"] != float64(7) || body["upserted"] != float64(6) {
		t.Errorf("counters = %v / %v", body["fetched"], body["upserted"])
	}
	if body["lastSyncedMatchTime"] != "2024-03-01T12:00:00Z" {
		t.Errorf("lastSyncedMatchTime = %v", body["lastSyncedMatchTime"])
	}
	if body["lastSyncedCursor"] != "c9" {
		t.Errorf("lastSyncedCursor = %v", body["lastSyncedCursor"])
	}
}

func TestTriggerSyncEmptyRun(t *testing.T) {
	h := NewSyncHandler(&stubSyncService{}, &stubStateStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	body := decodeBody(t, rec)
	if body["message"] != "Sync completed: 0 builder trades returned." {
		t.Errorf("message = %v", body["message"])
	}
	if body["lastSyncedCursor"] != nil {
		t.Errorf("cursor should be null, got %v", body["lastSyncedCursor"])
	}
}

func TestTriggerSyncAuthFailure(t *testing.T) {
	h := NewSyncHandler(&stubSyncService{
		err: &domain.AuthError{
			Status:        401,
			Message:       "Builder auth failed: check the builder API credentials and restart the server (status 401, correlationId cid-1)",
			CorrelationID: "cid-1",
		},
	}, &stubStateStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != false || body["status"] != float64(401) || body["correlationId"] != "cid-1" {
		t.Errorf("body = %v", body)
	}
}

func TestTriggerSyncConflict(t *testing.T) {
	h := NewSyncHandler(&stubSyncService{err: domain.ErrSyncRunning}, &stubStateStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestTriggerSyncInternalError(t *testing.T) {
	h := NewSyncHandler(&stubSyncService{err: errors.New("pg down")}, &stubStateStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["correlationId"] == "" || body["correlationId"] == nil {
		t.Error("correlation ID missing from 500 response")
	}
}

func TestGetSyncState(t *testing.T) {
	runAt := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	h := NewSyncHandler(&stubSyncService{}, &stubStateStore{
		state: domain.SyncState{LastRunAt: &runAt},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.GetSyncState(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["lastRunAt"] != "2024-03-01T12:05:00Z" {
		t.Errorf("lastRunAt = %v", body["lastRunAt"])
	}
	if body["lastSyncedMatchTime"] != nil {
		t.Errorf("lastSyncedMatchTime should be null, got %v", body["lastSyncedMatchTime"])
	}
}

func TestGetSyncStateMissingRow(t *testing.T) {
	h := NewSyncHandler(&stubSyncService{}, &stubStateStore{err: domain.ErrNotFound}, testLogger())

	rec := httptest.NewRecorder()
	h.GetSyncState(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("missing row should still be 200, got %d", rec.Code)
	}
}
