package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors for outbound dependencies. They work unregistered so tests can read them;
// MustRegisterMetrics exposes them on a registry.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "outbound",
		Name:      "breaker_state",
		Help:      "Current breaker state per outbound dependency: 0=closed,1=open,2=half-open.",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "outbound",
		Name:      "breaker_transition_total",
		Help:      "Count of breaker state transitions.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "outbound",
		Name:      "breaker_open_total",
		Help:      "Number of times a breaker transitioned into open state.",
	}, []string{"target"})
	AttemptDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "outbound",
		Name:      "attempt_duration_ms",
		Help:      "Latency of individual outbound HTTP attempts by result.",
		Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"target", "result"})
)

var registerOnce sync.Once

// MustRegisterMetrics registers the outbound collectors once. A nil registry means the
// Prometheus default registry.
func MustRegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{BreakerState, BreakerTransitions, BreakerOpenedTotal, AttemptDuration} {
			if err := reg.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					panic(err)
				}
			}
		}
	})
}

func attemptResult(statusCode int, err error) string {
	switch {
	case err != nil:
		return "error"
	case statusCode >= 500:
		return "5xx"
	case statusCode >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
