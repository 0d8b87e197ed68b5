package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSubmitTotal counts checkout submissions by outcome.
	CheckoutSubmitTotal *prometheus.CounterVec
	// CheckoutSubmitLatency records end-to-end submission latency in milliseconds.
	CheckoutSubmitLatency *prometheus.HistogramVec
	// ReadinessViolationsTotal counts failed readiness rules.
	ReadinessViolationsTotal *prometheus.CounterVec
	// QuoteTotal counts price quotes by destination class.
	QuoteTotal *prometheus.CounterVec
	// AuditWritesTotal counts checkout audit rows written by the worker.
	AuditWritesTotal *prometheus.CounterVec
	// RateLimitDecisionsTotal counts rate limiter decisions per scope.
	RateLimitDecisionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submit_total",
			Help:      "Count of checkout submissions by outcome.",
		}, []string{"result"})
		CheckoutSubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_submit_duration_ms",
			Help:      "Latency of checkout submissions in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"result"})
		ReadinessViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_readiness_violations_total",
			Help:      "Count of checkout readiness rule failures.",
		}, []string{"rule"})
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quote_total",
			Help:      "Count of computed price quotes by destination.",
		}, []string{"destination"})
		AuditWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_audit_writes_total",
			Help:      "Count of checkout audit writes by outcome.",
		}, []string{"result"})

		RateLimitDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Count of rate limiter decisions by scope and decision.",
		}, []string{"scope", "decision"})

		register(reg, &CheckoutSubmitTotal)
		register(reg, &CheckoutSubmitLatency)
		register(reg, &ReadinessViolationsTotal)
		register(reg, &QuoteTotal)
		register(reg, &AuditWritesTotal)
		register(reg, &RateLimitDecisionsTotal)
	})
}
