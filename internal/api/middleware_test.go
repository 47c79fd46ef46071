package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func doAuthRequest(t *testing.T, configure func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	handler := APIKeyAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/v1/videos", nil)
	configure(req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyAuthMissingKey(t *testing.T) {
	rec := doAuthRequest(t, func(*http.Request) {})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAPIKeyAuthWrongKey(t *testing.T) {
	rec := doAuthRequest(t, func(r *http.Request) {
		r.Header.Set("X-API-Key", "wrong")
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAPIKeyAuthHeaderKey(t *testing.T) {
	rec := doAuthRequest(t, func(r *http.Request) {
		r.Header.Set("X-API-Key", "secret")
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAPIKeyAuthBearerFallback(t *testing.T) {
	rec := doAuthRequest(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer secret")
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
