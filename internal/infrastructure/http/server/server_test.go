package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agourmet/ms_dte_bridge/internal/infrastructure/config"
	"agourmet/ms_dte_bridge/internal/testutil"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		HTTP: config.HTTPSettings{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 1 * time.Second,
		},
		CORS: config.CORSSettings{AllowedOrigins: []string{"*"}},
	}
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

func TestNew_NilLogger(t *testing.T) {
	_, err := New(Options{
		Config:        testConfig(),
		Logger:        nil,
		HealthHandler: okHandler(""),
	})

	if err == nil {
		t.Fatal("expected error for nil logger")
	}

	if err.Error() != "logger is required" {
		t.Errorf("expected error 'logger is required', got %q", err.Error())
	}
}

func TestNew_NilHealthHandler(t *testing.T) {
	_, err := New(Options{
		Config: testConfig(),
		Logger: testutil.NewTestLogger(),
	})

	if err == nil {
		t.Fatal("expected error for nil health handler")
	}

	if err.Error() != "health handler is required" {
		t.Errorf("expected error 'health handler is required', got %q", err.Error())
	}
}

func TestNew_ValidOptions(t *testing.T) {
	server, err := New(Options{
		Config:        testConfig(),
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
		EmitHandler:   okHandler(""),
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if server.httpServer == nil {
		t.Fatal("expected httpServer to be initialized")
	}

	if server.httpServer.Addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", server.httpServer.Addr)
	}
}

func TestServer_Routes(t *testing.T) {
	server, err := New(Options{
		Config:            testConfig(),
		Logger:            testutil.NewTestLogger(),
		HealthHandler:     okHandler("healthy"),
		MetricsHandler:    okHandler("metrics"),
		EmitHandler:       okHandler("emit"),
		ValidateHandler:   okHandler("validate"),
		OrdersPaidHandler: okHandler("orders-paid"),
		RefundsHandler:    okHandler("refunds"),
		EmitOrderHandler:  okHandler("emit-order"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/health", "healthy"},
		{http.MethodGet, "/metrics", "metrics"},
		{http.MethodPost, "/api/emit-dte", "emit"},
		{http.MethodPost, "/api/validate", "validate"},
		{http.MethodPost, "/api/webhooks/orders-paid", "orders-paid"},
		{http.MethodPost, "/api/webhooks/refunds", "refunds"},
		{http.MethodPost, "/api/orders/5001/emit", "emit-order"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestServer_FallbackHandlers(t *testing.T) {
	server, err := New(Options{
		Config:        testConfig(),
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, path := range []string{"/api/emit-dte", "/api/validate", "/api/webhooks/orders-paid", "/api/webhooks/refunds", "/api/orders/1/emit"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", w.Code)
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server, err := New(Options{
		Config:        testConfig(),
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
		EmitHandler:   okHandler("emit"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/emit-dte", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["success"] != false || body["error"] != "Método no permitido. Use POST." {
		t.Errorf("unexpected body %v", body)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	server, err := New(Options{
		Config:        testConfig(),
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
		EmitHandler:   okHandler("emit"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/emit-dte", nil)
	req.Header.Set("Origin", "https://agourmet.cl")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin '*', got %q", got)
	}
}

func TestServer_RequestTimeoutApplied(t *testing.T) {
	var hasDeadline bool
	server, err := New(Options{
		Config:        testConfig(),
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
		EmitHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasDeadline = r.Context().Deadline()
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	server.httpServer.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/emit-dte", nil))

	if !hasDeadline {
		t.Error("expected emission requests to carry a deadline")
	}
}

type stubAuth struct {
	closed bool
}

func (a *stubAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *stubAuth) Close() { a.closed = true }

func TestServer_AuthenticatorAndClose(t *testing.T) {
	auth := &stubAuth{}
	server, err := New(Options{
		Config:           testConfig(),
		Logger:           testutil.NewTestLogger(),
		HealthHandler:    okHandler(""),
		EmitOrderHandler: okHandler("emit-order"),
		Authenticator:    auth,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders/1/emit", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	server.Close()
	if !auth.closed {
		t.Error("expected authenticator to be closed")
	}
}

func TestServer_Run_ContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Port = 0

	server, err := New(Options{
		Config:        cfg,
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
