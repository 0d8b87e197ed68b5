package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/realizeit/storefront/internal/resilience"
)

// Probe checks one dependency. It must honour ctx cancellation.
type Probe func(ctx context.Context) error

// Dependency is a named readiness probe with its own timeout.
type Dependency struct {
	Name    string
	Probe   Probe
	Timeout time.Duration
}

var draining atomic.Bool

// SetReady toggles readiness. The server flips it to false when shutdown starts so load
// balancers stop routing new checkouts before connections are drained.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Dependencies []Dependency
	// Breakers are reported for visibility; an open breaker does not fail readiness.
	Breakers map[string]*resilience.Breaker
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every dependency probe concurrently and answers 503 if any fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	if len(h.Dependencies) == 0 {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "no dependencies configured"})
		return
	}

	var (
		mu      sync.Mutex
		healthy = true
		status  = make(map[string]string, len(h.Dependencies)+len(h.Breakers)+1)
	)
	g, ctx := errgroup.WithContext(r.Context())
	for _, dep := range h.Dependencies {
		g.Go(func() error {
			result := "ok"
			if err := runProbe(ctx, dep); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			status[dep.Name] = result
			if result != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	names := make([]string, 0, len(h.Breakers))
	for name := range h.Breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if b := h.Breakers[name]; b != nil {
			status["breaker:"+name] = b.State().String()
		}
	}

	code := http.StatusOK
	status["status"] = "ready"
	if !healthy {
		code = http.StatusServiceUnavailable
		status["status"] = "degraded"
	}
	writeStatus(w, code, status)
}

func runProbe(ctx context.Context, dep Dependency) error {
	timeout := dep.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return dep.Probe(ctx)
}

func writeStatus(w http.ResponseWriter, code int, status map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
