package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditpg "agourmet/ms_dte_bridge/internal/adapters/audit/postgres"
	"agourmet/ms_dte_bridge/internal/adapters/dte/lioren"
	emissionpg "agourmet/ms_dte_bridge/internal/adapters/emission/postgres"
	emissionhttp "agourmet/ms_dte_bridge/internal/adapters/http/emission"
	healthhttp "agourmet/ms_dte_bridge/internal/adapters/http/health"
	"agourmet/ms_dte_bridge/internal/adapters/order/shopify"
	appemission "agourmet/ms_dte_bridge/internal/application/emission"
	apphealth "agourmet/ms_dte_bridge/internal/application/health"
	"agourmet/ms_dte_bridge/internal/core/audit"
	"agourmet/ms_dte_bridge/internal/core/commune"
	"agourmet/ms_dte_bridge/internal/core/dte"
	coreemission "agourmet/ms_dte_bridge/internal/core/emission"
	"agourmet/ms_dte_bridge/internal/core/order"
	"agourmet/ms_dte_bridge/internal/infrastructure/config"
	"agourmet/ms_dte_bridge/internal/infrastructure/database"
	infrahttp "agourmet/ms_dte_bridge/internal/infrastructure/http"
	"agourmet/ms_dte_bridge/internal/infrastructure/http/middleware"
	"agourmet/ms_dte_bridge/internal/infrastructure/http/server"
	"agourmet/ms_dte_bridge/internal/infrastructure/logger"
	"agourmet/ms_dte_bridge/internal/infrastructure/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	})

	pool := openDatabase(ctx, cfg, log)
	if pool != nil {
		defer pool.Close()
		health.Register("database", pool.Ping, cfg.Emission.Store == config.StorePostgres)
	} else {
		health.Register("database", nil, false)
	}

	var auditRepo audit.Repository
	if pool != nil && cfg.Audit.Enabled {
		auditRepo = auditpg.NewRepository(pool, log)
		log.Info("Audit trail configuration: ENABLED", "max_body_size", cfg.Audit.MaxBodySize)
	} else {
		log.Info("Audit trail configuration: DISABLED",
			"audit_enabled_config", cfg.Audit.Enabled,
			"database_connected", pool != nil,
		)
	}

	tracedConfig := func(timeout time.Duration) *infrahttp.TracedClientConfig {
		return &infrahttp.TracedClientConfig{
			Timeout:         timeout,
			AuditEnabled:    auditRepo != nil,
			LogRequestBody:  cfg.Audit.LogRequestBody,
			LogResponseBody: cfg.Audit.LogResponseBody,
			MaxBodySize:     cfg.Audit.MaxBodySize,
		}
	}

	// Shopify: order source and, by default, emission store.
	var shopifyClient *shopify.Client
	if cfg.Shopify.Configured() {
		shopifyClient = shopify.NewClient(
			cfg.Shopify.StoreDomain,
			cfg.Shopify.APIVersion,
			cfg.Shopify.AccessToken,
			infrahttp.NewTracedClient(tracedConfig(cfg.Shopify.Timeout), log, auditRepo, "shopify"),
			log,
		)
		health.Register("shopify", shopifyClient.Ping, cfg.Emission.Store == config.StoreShopify)
		log.Info("Shopify Admin API configured", "store", cfg.Shopify.StoreDomain, "api_version", cfg.Shopify.APIVersion)
	} else {
		health.Register("shopify", nil, false)
		log.Warn("Shopify Admin API not configured; credit notes and order retries disabled")
	}
	if cfg.Shopify.WebhookSecret == "" {
		log.Warn("Shopify webhook secret not configured; webhook signatures will not be verified")
	}

	store := selectStore(cfg, shopifyClient, pool, log)

	opts := server.Options{
		Config:         cfg,
		Logger:         log,
		HealthHandler:  http.HandlerFunc(healthhttp.NewHandler(health).Status),
		MetricsHandler: promhttp.Handler(),
	}

	if cfg.Lioren.APIKey != "" {
		breaker := lioren.NewBreaker(cfg.Lioren.BreakerFailures, cfg.Lioren.BreakerCooldown)
		provider := lioren.NewClient(cfg.Lioren.BaseURL, cfg.Lioren.APIKey,
			infrahttp.NewTracedClient(tracedConfig(cfg.Lioren.Timeout), log, auditRepo, "lioren"), log).
			WithBreaker(breaker)
		health.Register("lioren", breaker.Check, false)

		location, err := cfg.Emission.Location()
		if err != nil {
			return fmt.Errorf("load time zone: %w", err)
		}
		builder := dte.NewBuilder(dte.BuilderConfig{
			ReceiptServiceType: cfg.Emission.ReceiptServiceType,
			Location:           location,
		}, commune.NewPlaceholder(cfg.Emission.DefaultCommune, cfg.Emission.DefaultCity))

		var orders order.Source
		if shopifyClient != nil {
			orders = shopifyClient
		}

		emissionMetrics := metrics.NewEmissionMetrics(nil)
		service := appemission.NewService(provider, builder, appemission.NewGuard(store, log), orders,
			appemission.Config{
				Namespace:       cfg.Emission.Namespace,
				RefundNamespace: cfg.Emission.RefundNamespace,
			}, log).WithRecorder(emissionMetrics)

		handler := emissionhttp.NewHandler(service, cfg.Shopify.WebhookSecret, log).WithRecorder(emissionMetrics)
		opts.EmitHandler = http.HandlerFunc(handler.EmitDTE)
		opts.ValidateHandler = http.HandlerFunc(handler.Validate)
		opts.OrdersPaidHandler = http.HandlerFunc(handler.OrdersPaid)
		opts.RefundsHandler = http.HandlerFunc(handler.Refunds)
		opts.EmitOrderHandler = http.HandlerFunc(handler.EmitOrder)

		log.Info("Lioren provider configured", "base_url", provider.EndpointURL(dte.Receipt))
	} else {
		health.Register("lioren", func(context.Context) error { return errors.New("LIOREN_API_KEY not set") }, true)
		log.Warn("Lioren API key not configured; emission endpoints will return 503")
	}

	if cfg.Auth.Enabled {
		auth, err := middleware.NewJWTAuthenticator(cfg.Auth, log)
		if err != nil {
			return fmt.Errorf("create authenticator: %w", err)
		}
		opts.Authenticator = auth
	}

	srv, err := server.New(opts)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port, "emission_store", cfg.Emission.Store)
	return srv.Run(ctx)
}

// openDatabase connects and migrates when a database is configured.
// Returns nil when it is not configured or unreachable.
func openDatabase(ctx context.Context, cfg config.AppConfig, log *slog.Logger) *pgxpool.Pool {
	if !cfg.Database.Configured() {
		log.Info("Database not configured, audit trail and postgres emission store disabled")
		return nil
	}

	pool, err := database.NewPool(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Warn("Failed to connect to database, audit trail and postgres emission store disabled",
			"error", err,
			"host", cfg.Database.Host,
			"database", cfg.Database.Database,
			"password_set", cfg.Database.Password != "",
		)
		return nil
	}

	if err := database.RunMigrations(ctx, pool, log); err != nil {
		log.Error("Failed to run migrations", "error", err)
		pool.Close()
		return nil
	}

	log.Info("Database connection established", "database", cfg.Database.Database)
	return pool
}

func selectStore(cfg config.AppConfig, shopifyClient *shopify.Client, pool *pgxpool.Pool, log *slog.Logger) coreemission.Store {
	switch cfg.Emission.Store {
	case config.StoreShopify:
		if shopifyClient == nil {
			log.Warn("Emission store 'shopify' selected but Shopify is not configured; duplicate guard disabled")
			return nil
		}
		return shopifyClient
	case config.StorePostgres:
		if pool == nil {
			log.Warn("Emission store 'postgres' selected but database is unavailable; duplicate guard disabled")
			return nil
		}
		return emissionpg.NewRepository(pool, log)
	default:
		log.Warn("Emission store disabled; duplicate emissions are not prevented")
		return nil
	}
}
