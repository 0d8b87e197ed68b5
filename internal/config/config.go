package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	AuthJWTSecret      string
	AuthJWTIssuer      string
	AuthJWTAudience    string
	AuthJWTMaxLifetime time.Duration
	AdminKeyHash       string

	CheckoutEndpointURL string
	CheckoutTimeout     time.Duration
	CheckoutLockTTL     time.Duration
	CartTTL             time.Duration
	IdempotencyTTL      time.Duration

	QuoteRateLimit      int
	QuoteRateWindow     time.Duration
	CheckoutRateLimit   int
	CheckoutRateWindow  time.Duration
	AnalyticsCacheTTL   time.Duration
	OrdersFetchLimit    int
	OrdersTable         string
	OrdersCreatedColumn string
	QueueConcurrency    int
	BodyLimitBytes      int64
	ShutdownGracePeriod time.Duration

	CircuitCheckoutMinRequests int
	CircuitCheckoutFailureRate float64
	CircuitCheckoutOpenFor     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AuthJWTSecret:      strings.TrimSpace(k.String("AUTH_JWT_SECRET")),
		AuthJWTIssuer:      valueOrDefault(k.String("AUTH_JWT_ISSUER"), "realizeit-auth"),
		AuthJWTAudience:    valueOrDefault(k.String("AUTH_JWT_AUDIENCE"), "storefront"),
		AuthJWTMaxLifetime: parseDuration(k.String("AUTH_JWT_MAX_LIFETIME"), "24h"),
		AdminKeyHash:       strings.TrimSpace(k.String("ADMIN_API_KEY_HASH")),

		CheckoutEndpointURL: strings.TrimSpace(k.String("CHECKOUT_ENDPOINT_URL")),
		CheckoutTimeout:     parseDuration(k.String("CHECKOUT_TIMEOUT"), "10s"),
		CheckoutLockTTL:     parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),
		CartTTL:             parseDuration(k.String("CART_TTL"), "168h"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		QuoteRateLimit:      parseInt(k.String("QUOTE_RATE_LIMIT"), 60),
		QuoteRateWindow:     parseDuration(k.String("QUOTE_RATE_WINDOW"), "1m"),
		CheckoutRateLimit:   parseInt(k.String("CHECKOUT_RATE_LIMIT"), 10),
		CheckoutRateWindow:  parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		AnalyticsCacheTTL:   parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
		OrdersFetchLimit:    parseInt(k.String("ORDERS_FETCH_LIMIT"), 500),
		OrdersTable:         valueOrDefault(k.String("ORDERS_TABLE"), "orders"),
		OrdersCreatedColumn: valueOrDefault(k.String("ORDERS_CREATED_COLUMN"), "created_at"),
		QueueConcurrency:    parseInt(k.String("QUEUE_CONCURRENCY"), 5),
		BodyLimitBytes:      int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		ShutdownGracePeriod: parseDuration(k.String("SHUTDOWN_GRACE_PERIOD"), "15s"),

		CircuitCheckoutMinRequests: parseInt(k.String("CIRCUIT_CHECKOUT_MIN_REQ"), 10),
		CircuitCheckoutFailureRate: parseFloat(k.String("CIRCUIT_CHECKOUT_FAILURE_RATE"), 0.5),
		CircuitCheckoutOpenFor:     parseDuration(k.String("CIRCUIT_CHECKOUT_OPEN_FOR"), "30s"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CheckoutEndpointURL == "" {
		return nil, errors.New("CHECKOUT_ENDPOINT_URL is required")
	}
	if cfg.CircuitCheckoutFailureRate <= 0 || cfg.CircuitCheckoutFailureRate > 1 {
		return nil, errors.New("CIRCUIT_CHECKOUT_FAILURE_RATE must be in (0,1]")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
