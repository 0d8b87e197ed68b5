package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":          "postgres://localhost/storefront",
		"REDIS_URL":             "redis://localhost:6379/0",
		"CHECKOUT_ENDPOINT_URL": "https://checkout.example.com/sessions",
	}
}

func TestLoadDefaults(t *testing.T) {
	env := baseEnv()
	for _, key := range []string{"APP_ENV", "PORT", "CHECKOUT_TIMEOUT", "CART_TTL", "QUOTE_RATE_LIMIT", "CIRCUIT_CHECKOUT_FAILURE_RATE", "CORS_ALLOWED_ORIGINS"} {
		env[key] = ""
	}
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.Equal(t, 60, cfg.QuoteRateLimit)
	require.Equal(t, 0.5, cfg.CircuitCheckoutFailureRate)
	require.Nil(t, cfg.CORSAllowedOrigins)
	require.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["APP_ENV"] = "production"
	env["PORT"] = ":9090"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example ,"
	env["CHECKOUT_TIMEOUT"] = "3s"
	env["QUOTE_RATE_LIMIT"] = "120"
	env["CIRCUIT_CHECKOUT_OPEN_FOR"] = "bogus"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 3*time.Second, cfg.CheckoutTimeout)
	require.Equal(t, 120, cfg.QuoteRateLimit)
	require.Equal(t, 30*time.Second, cfg.CircuitCheckoutOpenFor)
}

func TestLoadRequiresCheckoutEndpoint(t *testing.T) {
	env := baseEnv()
	env["CHECKOUT_ENDPOINT_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "CHECKOUT_ENDPOINT_URL")
}

func TestLoadRejectsInvalidFailureRate(t *testing.T) {
	env := baseEnv()
	env["CIRCUIT_CHECKOUT_FAILURE_RATE"] = "1.5"
	_, err := LoadForTests(env)
	require.Error(t, err)
}
