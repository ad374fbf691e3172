package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func healthResponse(t *testing.T, h *HealthHandler) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)
	return rec.Code, decodeBody(t, rec)
}

func TestHealthCheckAllComponentsOK(t *testing.T) {
	h := NewHealthHandler(&stubPinger{}, &stubPinger{}, testLogger())

	code, body := healthResponse(t, h)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["database"] != "ok" || checks["storage"] != "ok" {
		t.Errorf("checks = %v", checks)
	}
}

func TestHealthCheckDegradesOnFailedPing(t *testing.T) {
	h := NewHealthHandler(&stubPinger{}, &stubPinger{err: errors.New("bucket gone")}, testLogger())

	code, body := healthResponse(t, h)
	// A failing backend must not fail the endpoint itself.
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["database"] != "ok" || checks["storage"] != "error" {
		t.Errorf("checks = %v", checks)
	}
}

func TestHealthCheckSkipsUnconfiguredComponents(t *testing.T) {
	h := NewHealthHandler(&stubPinger{}, nil, testLogger())

	_, body := healthResponse(t, h)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	if _, present := checks["storage"]; present {
		t.Errorf("storage should be absent when not configured: %v", checks)
	}
}
