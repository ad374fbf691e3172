package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func authedRequest(t *testing.T, mw func(http.Handler) http.Handler, path string, set func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if set != nil {
		set(req)
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec
}

func TestAuthBearerToken(t *testing.T) {
	mw := Auth("s3cret")
	rec := authedRequest(t, mw, "/api/trades", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer s3cret")
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthAPIKeyHeader(t *testing.T) {
	mw := Auth("s3cret")
	rec := authedRequest(t, mw, "/api/trades", func(r *http.Request) {
		r.Header.Set("X-API-Key", "s3cret")
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMissingToken(t *testing.T) {
	mw := Auth("s3cret")
	rec := authedRequest(t, mw, "/api/trades", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":false`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAuthWrongToken(t *testing.T) {
	mw := Auth("s3cret")
	rec := authedRequest(t, mw, "/api/trades", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthPublicPaths(t *testing.T) {
	mw := Auth("s3cret")
	for _, path := range []string{"/api/health", "/ws"} {
		rec := authedRequest(t, mw, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without credentials", path, rec.Code)
		}
	}
}

func TestAuthDisabledWhenKeyEmpty(t *testing.T) {
	mw := Auth("")
	rec := authedRequest(t, mw, "/api/trades", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}
