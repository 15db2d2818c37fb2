// Package main is the entry point for the Trailmark API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/trailmark/internal/api"
	"github.com/onnwee/trailmark/internal/config"
	"github.com/onnwee/trailmark/internal/health"
	"github.com/onnwee/trailmark/internal/jobs"
	"github.com/onnwee/trailmark/internal/middleware"
	"github.com/onnwee/trailmark/internal/session"
	"github.com/onnwee/trailmark/internal/store"
	"github.com/onnwee/trailmark/internal/tracing"
	"github.com/onnwee/trailmark/internal/visit"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Trailmark API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	// Initialize logger
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	// Initialize tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "trailmark-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mwMetrics := middleware.NewMetrics()
	storeMetrics := store.NewMetrics()
	visitMetrics := visit.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		mwMetrics.Register,
		storeMetrics.Register,
		visitMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	// Store token: use the pre-issued one, or mint from the shared secret
	token := cfg.StoreToken
	if token == "" {
		token, err = store.MintToken(cfg.StoreJWTSecret, cfg.StoreRole, cfg.StoreUsername)
		if err != nil {
			logger.Error("failed to mint store token", "error", err)
			os.Exit(1)
		}
	}

	storeClient := store.NewClient(cfg.StoreBaseURL, token, store.WithMetrics(storeMetrics))
	sessions := session.NewManager(storeClient, visitMetrics)

	// Redis is optional; it upgrades rate limiting from per-instance to
	// distributed and joins the readiness check when configured.
	var redisClient *redis.Client
	var rateLimitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	var redisChecker api.HealthChecker
	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, mwMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("redis rate limiting enabled", "addr", cfg.RedisAddr)
	} else {
		// In-memory buckets leak without periodic cleanup.
		memStore := rateLimitStore.(*middleware.InMemoryRateLimitStore)
		jobMetrics := jobs.NewMetrics()
		if err := jobMetrics.Register(registry); err != nil {
			logger.Error("failed to register job metrics", "error", err)
			os.Exit(1)
		}
		runner := jobs.NewRunner(jobMetrics)
		runner.Add(jobs.Job{
			Type:     jobs.JobTypeRateLimitCleanup,
			Interval: 5 * time.Minute,
			Run: func(ctx context.Context) error {
				memStore.Cleanup()
				return nil
			},
		})
		runner.Start(jobCtx)
	}

	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		StoreChecker: health.NewStoreChecker(storeClient),
		RedisChecker: redisChecker,
	})

	mux := api.NewMux(api.RouterConfig{
		Store:          storeClient,
		Sessions:       sessions,
		RadiusMeters:   cfg.GeofenceRadiusMeters,
		Health:         healthHandlers,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	rateLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitPerMinute,
		WindowDuration:    time.Minute,
	}
	if err := rateLimit.Validate(); err != nil {
		logger.Error("invalid rate limit config", "error", err)
		os.Exit(1)
	}

	// Middleware chain, outermost first:
	// RequestID -> Logging -> HTTPMetrics -> Tracing -> CORS -> RateLimiter
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, rateLimit, middleware.ParticipantKeyFunc())(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxAge:         300,
	})(handler)
	if tracerProvider.IsEnabled() {
		handler = middleware.Tracing("trailmark-api")(handler)
	}
	handler = middleware.HTTPMetrics(mwMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}

	logger.Info("server stopped")
}
