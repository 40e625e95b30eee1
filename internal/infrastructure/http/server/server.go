package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"agourmet/ms_dte_bridge/internal/infrastructure/config"
	httperrors "agourmet/ms_dte_bridge/internal/infrastructure/http"
	"agourmet/ms_dte_bridge/internal/infrastructure/http/middleware"
)

// Authenticator wraps protected routes.
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
	Close()
}

// Server wraps the HTTP server and its routes.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	cfg        config.HTTPSettings
	auth       Authenticator
}

// Options configures the server. Nil emission handlers are replaced by a
// 503 fallback so the routes stay visible when a provider is not configured.
type Options struct {
	Config            config.AppConfig
	Logger            *slog.Logger
	HealthHandler     http.Handler
	MetricsHandler    http.Handler
	EmitHandler       http.Handler
	ValidateHandler   http.Handler
	OrdersPaidHandler http.Handler
	RefundsHandler    http.Handler
	EmitOrderHandler  http.Handler
	Authenticator     Authenticator // Optional
}

// New builds the router and HTTP server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	cfg := opts.Config
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.Metrics)
	if opts.Authenticator != nil {
		r.Use(opts.Authenticator.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, http.StatusNotFound, "Recurso no encontrado", nil, opts.Logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, OPTIONS")
		httperrors.WriteError(w, http.StatusMethodNotAllowed, "Método no permitido. Use POST.", nil, opts.Logger)
	})

	r.Method(http.MethodGet, "/health", opts.HealthHandler)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins(cfg.CORS.AllowedOrigins),
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         300,
		}))
		api.Use(middleware.RequestTimeout(cfg.HTTP.RequestTimeout))

		api.Method(http.MethodPost, "/emit-dte", orFallback(opts.EmitHandler, "emisión de DTE", opts.Logger))
		api.Method(http.MethodPost, "/validate", orFallback(opts.ValidateHandler, "validación de DTE", opts.Logger))
		api.Method(http.MethodPost, "/webhooks/orders-paid", orFallback(opts.OrdersPaidHandler, "webhook de órdenes pagadas", opts.Logger))
		api.Method(http.MethodPost, "/webhooks/refunds", orFallback(opts.RefundsHandler, "webhook de devoluciones", opts.Logger))
		api.Method(http.MethodPost, "/orders/{orderID}/emit", orFallback(opts.EmitOrderHandler, "reemisión de órdenes", opts.Logger))
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &Server{
		log:        opts.Logger,
		httpServer: srv,
		cfg:        cfg.HTTP,
		auth:       opts.Authenticator,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownTimeout := s.cfg.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.log.Info("Shutting down HTTP server", "timeout", shutdownTimeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the authenticator's background resources.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}

func orFallback(h http.Handler, feature string, log *slog.Logger) http.Handler {
	if h != nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, http.StatusServiceUnavailable, "Servicio no disponible",
			[]string{"El servicio de " + feature + " no está configurado"}, log)
	})
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
