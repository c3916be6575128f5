package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/discount-quote/internal/config"
	"github.com/noah-isme/discount-quote/internal/health"
	"github.com/noah-isme/discount-quote/internal/obs"
	"github.com/noah-isme/discount-quote/internal/quote"
	"github.com/noah-isme/discount-quote/internal/ratelimit"
	"github.com/noah-isme/discount-quote/internal/resilience"
	"github.com/noah-isme/discount-quote/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		reportStartupError(obs.NewLogger("json", "info"), err, "load config")
		os.Exit(1)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "discount-quote",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      "otlp",
			SamplingRatio: cfg.SamplingRatio,
			Environment:   cfg.AppEnv,
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

	redisClient := connectRedis(ctx, cfg, logger, tracingEnabled)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	var quoteMetrics *obs.QuoteMetrics
	var httpMetrics *obs.HTTPMetrics
	var breakerMetrics *resilience.Metrics
	if cfg.MetricsEnabled {
		quoteMetrics = obs.NewQuoteMetrics(cfg.MetricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
		breakerMetrics = resilience.NewMetrics(cfg.MetricsNamespace, nil)
	}

	cacheBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("quote_cache").
		WithLogger(logger).
		WithMetrics(breakerMetrics)

	quoteSvc := &quote.Service{
		Cache:        quote.NewCache(redisClient, cfg.QuoteCacheTTL).WithBreaker(cacheBreaker),
		Metrics:      quoteMetrics,
		Logger:       logger.With().Str("component", "quote").Logger(),
		MaxDiscounts: cfg.QuoteMaxDiscounts,
	}
	quoteHandler := quote.NewHandler(quoteSvc)

	limiter, err := ratelimit.NewLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	rateLimit := ratelimit.Handler{
		Limiter: limiter,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checks: readinessChecks(redisClient)}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.With(rateLimit.Middleware).Post("/quotes", quoteHandler.Create)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

// reportStartupError logs a failure that happens before the configured logger
// exists, in the same structured form as later fatal errors.
func reportStartupError(logger zerolog.Logger, err error, msg string) {
	logger.WithLevel(zerolog.FatalLevel).Err(err).Msg(msg)
}

// connectRedis returns nil when REDIS_URL is unset; quotes are then uncached and
// rate limits are counted in memory.
func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, tracing bool) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("redis not configured, quote cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func readinessChecks(client *redis.Client) map[string]health.Check {
	if client == nil {
		return nil
	}
	return map[string]health.Check{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}
