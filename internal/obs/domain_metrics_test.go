package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/realizeit/storefront/internal/obs"
)

func TestDomainMetricsRegisterOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("storefront_test", registry)
	require.NotPanics(t, func() { obs.MustRegisterDomainMetrics("storefront_test", registry) })

	require.NotNil(t, obs.CheckoutSubmitTotal)
	require.NotNil(t, obs.ReadinessViolationsTotal)
	require.NotNil(t, obs.QuoteTotal)

	before := testutil.ToFloat64(obs.ReadinessViolationsTotal.WithLabelValues("consent"))
	obs.ReadinessViolationsTotal.WithLabelValues("consent").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(obs.ReadinessViolationsTotal.WithLabelValues("consent")))
}
