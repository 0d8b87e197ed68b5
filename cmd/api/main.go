package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/realizeit/storefront/internal/analytics"
	"github.com/realizeit/storefront/internal/audit"
	"github.com/realizeit/storefront/internal/auth"
	"github.com/realizeit/storefront/internal/cart"
	"github.com/realizeit/storefront/internal/checkout"
	"github.com/realizeit/storefront/internal/common"
	"github.com/realizeit/storefront/internal/config"
	"github.com/realizeit/storefront/internal/health"
	"github.com/realizeit/storefront/internal/lock"
	"github.com/realizeit/storefront/internal/obs"
	"github.com/realizeit/storefront/internal/order"
	"github.com/realizeit/storefront/internal/queue"
	"github.com/realizeit/storefront/internal/ratelimit"
	"github.com/realizeit/storefront/internal/resilience"
	"github.com/realizeit/storefront/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger("storefront-api", logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "storefront-api",
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:    cfg.AppEnv,
			ServiceVersion: envOrDefault("APP_VERSION", ""),
			Insecure:       envBool("OBS_OTLP_INSECURE", false),
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{Logger: &logger, SlowThreshold: envDurationMillis("OBS_SLOW_QUERY_MS", 250)}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "storefront-api"

	pool, err := pgxpool.NewWithConfig(startupCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse asynq redis uri")
	}
	taskClient := asynq.NewClient(asynqRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	inspector := asynq.NewInspector(asynqRedis)
	defer func() { _ = inspector.Close() }()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:      cfg.AuthJWTSecret,
		Issuer:      cfg.AuthJWTIssuer,
		Audience:    cfg.AuthJWTAudience,
		ClockSkew:   30 * time.Second,
		MaxLifetime: cfg.AuthJWTMaxLifetime,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("session tokens disabled; checkout runs as guest only")
	}
	authMiddleware := auth.Middleware{Verifier: verifier}
	adminKey := auth.AdminKey{Hash: cfg.AdminKeyHash}

	validate := validator.New()
	cartStore := cart.NewStore(redisClient, cfg.CartTTL)
	cartHandler := &cart.Handler{Store: cartStore, Validate: validate}

	checkoutBreaker := resilience.NewBreaker(cfg.CircuitCheckoutMinRequests, cfg.CircuitCheckoutFailureRate, cfg.CircuitCheckoutOpenFor).
		WithTarget("checkout").
		WithLogger(logger)
	checkoutHTTP := resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     checkoutBreaker,
		MaxAttempts: 1,
		Timeout:     cfg.CheckoutTimeout,
	}
	checkoutSvc := &checkout.Service{
		Carts:     cartStore,
		Submitter: checkout.Client{Endpoint: cfg.CheckoutEndpointURL, HTTP: checkoutHTTP},
		Locker:    lock.Locker{R: redisClient},
		LockTTL:   cfg.CheckoutLockTTL,
		Queue:     queue.Enqueuer{Client: taskClient, Queue: queue.DefaultQueue},
		Logger:    logger.With().Str("component", "checkout").Logger(),
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	orderRepo := order.PGRepository{DB: pool, Table: cfg.OrdersTable, CreatedColumn: cfg.OrdersCreatedColumn}
	orderAdmin := &order.AdminHandler{Source: orderRepo, FetchLimit: cfg.OrdersFetchLimit}
	analyticsSvc := &analytics.Service{
		Orders:     orderRepo,
		R:          redisClient,
		TTL:        cfg.AnalyticsCacheTTL,
		FetchLimit: cfg.OrdersFetchLimit,
		Locker:     lock.Locker{R: redisClient},
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}
	auditHandler := audit.Handler{Store: audit.PGStore{DB: pool}}
	queueAdmin := &queue.AdminHandler{Inspector: inspector, Queue: queue.DefaultQueue, Logger: logger}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	quoteLimiter, err := ratelimit.NewRedisFixedWindow(redisClient, "rl:quote", cfg.QuoteRateWindow, cfg.QuoteRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise quote limiter")
	}
	quoteLimit := ratelimit.Handler{
		Limiter: quoteLimiter,
		Config:  ratelimit.Config{Scope: "quote", Key: ratelimit.KeyByClientIP("quote"), Window: cfg.QuoteRateWindow, Max: cfg.QuoteRateLimit},
		OnError: func(err error) { logger.Error().Err(err).Msg("quote rate limiter") },
	}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{Client: redisClient, Prefix: "rl:checkout"},
		Config:  ratelimit.Config{Scope: "checkout", Key: ratelimit.KeyByUserOrIP("checkout"), Window: cfg.CheckoutRateWindow, Max: cfg.CheckoutRateLimit},
		OnError: func(err error) { logger.Error().Err(err).Msg("checkout rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger, SkipPaths: []string{"/health/live", "/health/ready", "/metrics"}}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", auth.AdminKeyHeader},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	hstsMaxAge := time.Duration(0)
	if cfg.IsProduction() {
		hstsMaxAge = 365 * 24 * time.Hour
	}
	r.Use(security.Headers{HSTSMaxAge: hstsMaxAge, HSTSIncludeSubdomains: true, TrustForwardedProto: envBool("SECURE_TRUST_FORWARDED_PROTO", true)}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes, RequireJSON: true}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Dependencies: []health.Dependency{
			{Name: "db", Probe: pool.Ping, Timeout: envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500)},
			{Name: "redis", Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }, Timeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300)},
		},
		Breakers: map[string]*resilience.Breaker{"checkout": checkoutBreaker},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	noStore := security.NoStore

	r.Route("/api/v1", func(v chi.Router) {
		v.With(noStore, quoteLimit.Middleware).Post("/quote", cartHandler.Quote)

		v.Route("/carts", func(c chi.Router) {
			c.Use(noStore)
			c.Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.Put("/{id}/items", cartHandler.PutItem)
			c.Delete("/{id}/items/{itemId}", cartHandler.RemoveItem)
			c.Delete("/{id}", cartHandler.Clear)
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Use(noStore, authMiddleware.Authenticate)
			c.Post("/readiness", checkoutHandler.Readiness)
			c.With(checkoutLimit.Middleware, idem.Middleware).Post("/", checkoutHandler.Checkout)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(noStore, adminKey.Require)
			admin.Get("/orders", orderAdmin.List)
			admin.Get("/analytics/overview", analyticsHandler.Overview)
			admin.Get("/logs", auditHandler.List)
			admin.Get("/queue/stats", queueAdmin.Stats)
			admin.Get("/queue/archived", queueAdmin.ListArchived)
			admin.Post("/queue/archived/replay", queueAdmin.ReplayArchived)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
