package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // EMISSION_TIMEZONE must resolve in minimal images

	"github.com/joho/godotenv"
)

// Emission store backends.
const (
	StoreShopify  = "shopify"
	StorePostgres = "postgres"
	StoreNone     = "none"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App      AppSettings
	HTTP     HTTPSettings
	Auth     AuthSettings
	Log      LogSettings
	Database DatabaseSettings
	Audit    AuditSettings
	Lioren   LiorenSettings
	Shopify  ShopifySettings
	Emission EmissionSettings
	CORS     CORSSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Upper bound for a whole emission request
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type AuthSettings struct {
	Enabled     bool
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Configured reports whether enough settings are present to open a pool.
func (d DatabaseSettings) Configured() bool {
	return d.Host != "" && d.Database != ""
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// LiorenSettings configures the DTE issuing service.
type LiorenSettings struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	BreakerFailures int           // Consecutive outages before failing fast
	BreakerCooldown time.Duration // Wait before probing again
}

// ShopifySettings configures the storefront Admin API and its webhooks.
type ShopifySettings struct {
	StoreDomain   string
	AccessToken   string
	APIVersion    string
	WebhookSecret string // Empty disables HMAC verification
	Timeout       time.Duration
}

// Configured reports whether the Admin API can be called.
func (s ShopifySettings) Configured() bool {
	return s.StoreDomain != "" && s.AccessToken != ""
}

// EmissionSettings holds the document-building and tracking knobs.
type EmissionSettings struct {
	Store              string
	Namespace          string
	RefundNamespace    string
	TimeZone           string
	ReceiptServiceType int
	DefaultCommune     int
	DefaultCity        int
}

// Location resolves the configured time zone.
func (e EmissionSettings) Location() (*time.Location, error) {
	return time.LoadLocation(e.TimeZone)
}

type CORSSettings struct {
	AllowedOrigins []string
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env file values.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "ms_dte_bridge"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 75*time.Second),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 70*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthSettings{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			IssuerURI: strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI: strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew: getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{
				"/health",
				"/metrics",
				"/api/emit-dte",
				"/api/validate",
				"/api/webhooks/*",
			}),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            strings.TrimSpace(os.Getenv("DB_HOST")),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "ms_dte_bridge"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		Lioren: LiorenSettings{
			BaseURL:         strings.TrimRight(getEnv("LIOREN_BASE_URL", "https://www.lioren.cl/api"), "/"),
			APIKey:          strings.TrimSpace(os.Getenv("LIOREN_API_KEY")),
			Timeout:         getEnvAsDuration("LIOREN_TIMEOUT", 30*time.Second),
			BreakerFailures: getEnvAsInt("LIOREN_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvAsDuration("LIOREN_BREAKER_COOLDOWN", 30*time.Second),
		},
		Shopify: ShopifySettings{
			StoreDomain:   strings.TrimSpace(os.Getenv("SHOPIFY_STORE_DOMAIN")),
			AccessToken:   strings.TrimSpace(os.Getenv("SHOPIFY_ACCESS_TOKEN")),
			APIVersion:    getEnv("SHOPIFY_API_VERSION", "2024-01"),
			WebhookSecret: strings.TrimSpace(os.Getenv("SHOPIFY_WEBHOOK_SECRET")),
			Timeout:       getEnvAsDuration("SHOPIFY_TIMEOUT", 30*time.Second),
		},
		Emission: EmissionSettings{
			Store:              strings.ToLower(getEnv("EMISSION_STORE", StoreShopify)),
			Namespace:          getEnv("EMISSION_NAMESPACE", "lioren_dte"),
			RefundNamespace:    getEnv("EMISSION_REFUND_NAMESPACE", "lioren_refund"),
			TimeZone:           getEnv("EMISSION_TIMEZONE", "America/Santiago"),
			ReceiptServiceType: getEnvAsInt("EMISSION_RECEIPT_SERVICE_TYPE", 3),
			DefaultCommune:     getEnvAsInt("EMISSION_DEFAULT_COMMUNE", 95),
			DefaultCity:        getEnvAsInt("EMISSION_DEFAULT_CITY", 76),
		},
		CORS: CORSSettings{
			AllowedOrigins: getEnvAsCSV("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	switch cfg.Emission.Store {
	case StoreShopify, StorePostgres, StoreNone:
	default:
		return cfg, fmt.Errorf("invalid config: EMISSION_STORE must be one of %s, %s, %s", StoreShopify, StorePostgres, StoreNone)
	}
	if cfg.Emission.Store == StorePostgres && !cfg.Database.Configured() {
		return cfg, errors.New("invalid config: DB_HOST is required when EMISSION_STORE=postgres")
	}

	if _, err := cfg.Emission.Location(); err != nil {
		return cfg, fmt.Errorf("invalid config: EMISSION_TIMEZONE: %w", err)
	}

	if cfg.Lioren.Timeout <= 0 || cfg.Shopify.Timeout <= 0 {
		return cfg, errors.New("invalid config: LIOREN_TIMEOUT and SHOPIFY_TIMEOUT must be positive")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return cfg, errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return cfg, errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	}

	return cfg, nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
