package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/realizeit/storefront/internal/common"
)

// NewLogger builds the process logger. format "console" or "text" selects the human
// readable writer; anything else logs JSON lines to stdout.
func NewLogger(service, format, level string) zerolog.Logger {
	return newLogger(os.Stdout, service, format, level)
}

func newLogger(w io.Writer, service, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).With().Timestamp()
	if svc := strings.TrimSpace(service); svc != "" {
		ctx = ctx.Str("service", svc)
	}
	return ctx.Logger()
}

// RequestLogger writes one access log line per request and attaches a request-scoped
// logger carrying request_id and trace_id, retrievable with zerolog.Ctx.
type RequestLogger struct {
	Logger zerolog.Logger
	// SkipPaths are exact paths that produce no access log, e.g. probes and /metrics.
	SkipPaths []string
}

func (l RequestLogger) skip(path string) bool {
	for _, p := range l.SkipPaths {
		if p == path {
			return true
		}
	}
	return false
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		spanCtx := trace.SpanContextFromContext(r.Context())

		scoped := l.Logger.With().Str("request_id", reqID)
		if spanCtx.IsValid() {
			scoped = scoped.Str("trace_id", spanCtx.TraceID().String())
		}
		reqLogger := scoped.Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		if l.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)

		route := routeOf(r)
		if route == "" {
			route = unmatchedRoute
		}
		userID, _ := common.UserID(r.Context())
		if userID == "" {
			userID = UserIDFromContext(r.Context())
		}

		evt := eventFor(&reqLogger, recorder.Status()).
			Str("method", r.Method).
			Str("route", route).
			Str("path", r.URL.Path).
			Int("status", recorder.Status()).
			Int64("duration_ms", duration.Milliseconds()).
			Int64("bytes", recorder.BytesWritten())
		if spanCtx.IsValid() {
			evt = evt.Str("span_id", spanCtx.SpanID().String())
		}
		if user := strings.TrimSpace(userID); user != "" {
			evt = evt.Str("user_id", user)
		}
		if replay := recorder.Header().Get("Idempotent-Replayed"); replay != "" {
			evt = evt.Bool("idempotent_replay", true)
		}
		if ip := strings.TrimSpace(r.RemoteAddr); ip != "" {
			evt = evt.Str("remote_addr", ip)
		}
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}

func eventFor(logger *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return logger.Error()
	case status >= http.StatusBadRequest:
		return logger.Warn()
	default:
		return logger.Info()
	}
}
