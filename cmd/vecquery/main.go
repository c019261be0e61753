package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/config"
	dbRedis "github.com/kailas-cloud/vecquery/internal/db/redis"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	logpkg "github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
	collectionrepo "github.com/kailas-cloud/vecquery/internal/repository/collection"
	"github.com/kailas-cloud/vecquery/internal/repository/embcache"
	pointsrepo "github.com/kailas-cloud/vecquery/internal/repository/points"
	usagerepo "github.com/kailas-cloud/vecquery/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/vecquery/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vecquery/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/vecquery/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
	inferenceuc "github.com/kailas-cloud/vecquery/internal/usecase/inference"
	queryuc "github.com/kailas-cloud/vecquery/internal/usecase/query"
	telemetryuc "github.com/kailas-cloud/vecquery/internal/usecase/telemetry"
	usageuc "github.com/kailas-cloud/vecquery/internal/usecase/usage"
	"github.com/kailas-cloud/vecquery/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecquery API server",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Int("db_replicas", 1+len(cfg.Database.Replicas)),
	)

	ctx := context.Background()

	// One store per replica, primary first.
	stores := make([]*dbRedis.Store, 0, 1+len(cfg.Database.Replicas))
	for i, addrs := range cfg.Database.ReplicaAddrs() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      addrs,
			Password:   cfg.Database.Password,
			ClientName: fmt.Sprintf("vecquery-replica-%d", i),
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Int("replica", i), zap.Error(err))
		}
		defer s.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := s.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Database not ready", zap.Int("replica", i), zap.Error(err))
		}
		stores = append(stores, s)
	}
	primary := stores[0]
	logger.Info("Connected to database", zap.Int("replicas", len(stores)))

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterQueryMetrics()

	collStores := make([]collectionrepo.Store, 0, len(stores)-1)
	pointStores := make([]pointsrepo.Store, 0, len(stores))
	pingers := make([]healthuc.DBPinger, 0, len(stores))
	for i, s := range stores {
		if i > 0 {
			collStores = append(collStores, s)
		}
		pointStores = append(pointStores, s)
		pingers = append(pingers, s)
	}

	collRepo := collectionrepo.New(primary, collStores...).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	pointsRepo := pointsrepo.New(collRepo, pointsrepo.Config{
		MaxParallelShards: int64(cfg.Query.MaxParallelShards),
	}, pointStores...)

	// Inference chain: OpenAI -> Guard (budget) -> Cached.
	// Pass nil interfaces (not typed nil pointers) when inference is disabled.
	var embedder queryuc.Embedder
	var inferenceChecker healthuc.InferenceChecker
	if cfg.Inference.Enabled() {
		guard, err := buildInference(ctx, cfg.Inference, primary, logger)
		if err != nil {
			logger.Fatal("Failed to build inference chain", zap.Error(err))
		}
		embedder = embcache.New(guard, primary, embcache.Config{
			Model:      cfg.Inference.Model,
			Dimensions: cfg.Inference.Dimensions,
			TTL:        time.Duration(cfg.Inference.CacheTTLHours) * time.Hour,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
		inferenceChecker = guard
		logger.Info("Inference enabled",
			zap.String("provider", cfg.Inference.Provider),
			zap.String("model", cfg.Inference.Model),
			zap.Int("dimensions", cfg.Inference.Dimensions),
		)
	}

	fallback, err := distance.Parse(cfg.Query.ExplainFallbackDistance)
	if err != nil {
		logger.Fatal("Invalid explain fallback distance", zap.Error(err))
	}

	querySvc := queryuc.New(queryuc.NewInstrumentedStore(pointsRepo), collRepo, embedder, queryuc.Config{
		ExplainTopDimensions: cfg.Query.ExplainTopDimensions,
		FallbackDistance:     fallback,
		StrictDistance:       cfg.Query.ExplainStrictDistance,
		InferenceModel:       cfg.Inference.Model,
	})
	collSvc := collectionuc.New(collRepo).WithPoints(pointsRepo)
	usageSvc := usageuc.New(usagerepo.New(primary,
		time.Duration(cfg.Usage.DailyTTLHours)*time.Hour,
		time.Duration(cfg.Usage.MonthlyTTLHours)*time.Hour,
	))
	healthSvc := healthuc.New(inferenceChecker, pingers...)
	telemetrySvc := telemetryuc.New(collSvc, querySvc, usageSvc, prometheus.DefaultGatherer)

	server := chiTransport.NewServer(querySvc, collSvc, usageSvc, healthSvc, telemetrySvc).
		WithMaxBatchSize(cfg.Query.MaxBatchSize).
		WithTimeouts(cfg.Query.DefaultTimeout(), cfg.Query.MaxTimeout())

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, cfg.Auth.ReadOnlyAPIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildInference wraps the provider with the token budget. Counters are
// restored from the primary store so restarts keep the current spend.
func buildInference(
	ctx context.Context, cfg config.InferenceConfig, primary *dbRedis.Store, logger *zap.Logger,
) (*inferenceuc.Guard, error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Dimensions:        cfg.Dimensions,
		Provider:          cfg.Provider,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})

	if cfg.DailyTokenLimit <= 0 && cfg.MonthlyTokenLimit <= 0 {
		return inferenceuc.NewGuard(base, cfg.Provider, cfg.Model, nil), nil
	}

	action, err := inferenceuc.ParseAction(cfg.BudgetAction)
	if err != nil {
		return nil, fmt.Errorf("budget action: %w", err)
	}
	budget := inferenceuc.NewBudget(cfg.Provider, inferenceuc.Limits{
		Daily:   cfg.DailyTokenLimit,
		Monthly: cfg.MonthlyTokenLimit,
		Action:  action,
	}, primary, logger)
	if err := budget.Restore(ctx); err != nil {
		logger.Warn("Failed to restore inference budget, starting from zero", zap.Error(err))
	}
	return inferenceuc.NewGuard(base, cfg.Provider, cfg.Model, budget), nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"status":  "error",
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
