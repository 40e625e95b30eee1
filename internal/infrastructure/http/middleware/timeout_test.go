package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool

	start := time.Now()
	handler := RequestTimeout(30 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/emit-dte", nil))

	if !hasDeadline {
		t.Fatal("expected request context to carry a deadline")
	}
	// The deadline is taken after start, so it lands at or just past start+30s.
	if remaining := deadline.Sub(start); remaining < 30*time.Second || remaining > 31*time.Second {
		t.Errorf("unexpected deadline distance %v", remaining)
	}
}

func TestRequestTimeout_Disabled(t *testing.T) {
	handler := RequestTimeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("expected no deadline when disabled")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
