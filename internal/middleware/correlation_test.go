package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(CorrelationKey).(string)
		if !ok || id == "" {
			t.Error("correlation id missing from context")
		}
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("header missing")
	}
}

func TestCorrelationID_PropagatesHeaderAndUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /users/{userID}/transactions", CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetCorrelationID(r.Context()); got != "fixed-id" {
			t.Errorf("expected fixed-id, got %s", got)
		}
		if uid, _ := r.Context().Value(UserKey).(string); uid != "u42" {
			t.Errorf("expected user u42 in context, got %q", uid)
		}
	})))

	req := httptest.NewRequest("GET", "/users/u42/transactions", nil)
	req.Header.Set("X-Correlation-ID", "fixed-id")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Header().Get("X-Correlation-ID") != "fixed-id" {
		t.Errorf("expected echoed header, got %q", w.Header().Get("X-Correlation-ID"))
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/users/u1/transactions", nil)
	w := httptest.NewRecorder()
	h(w, req)

	if called {
		t.Error("preflight must not reach the handler")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestGetCorrelationID_Unknown(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "unknown" {
		t.Errorf("expected unknown, got %s", got)
	}
}
