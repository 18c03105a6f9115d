package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/config"
	"github.com/kailas-cloud/refurnish/internal/db"
	dbRedis "github.com/kailas-cloud/refurnish/internal/db/redis"
	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	logpkg "github.com/kailas-cloud/refurnish/internal/logger"
	"github.com/kailas-cloud/refurnish/internal/metrics"
	"github.com/kailas-cloud/refurnish/internal/prompt"
	budgetrepo "github.com/kailas-cloud/refurnish/internal/repository/budget"
	"github.com/kailas-cloud/refurnish/internal/repository/visioncache"
	"github.com/kailas-cloud/refurnish/internal/staticdata"
	chiTransport "github.com/kailas-cloud/refurnish/internal/transport/chi"
	genaiVision "github.com/kailas-cloud/refurnish/internal/transport/genai"
	openaiVision "github.com/kailas-cloud/refurnish/internal/transport/openai"
	calibrationuc "github.com/kailas-cloud/refurnish/internal/usecase/calibration"
	conceptuc "github.com/kailas-cloud/refurnish/internal/usecase/concept"
	healthuc "github.com/kailas-cloud/refurnish/internal/usecase/health"
	matchinguc "github.com/kailas-cloud/refurnish/internal/usecase/matching"
	pipelineuc "github.com/kailas-cloud/refurnish/internal/usecase/pipeline"
	profilinguc "github.com/kailas-cloud/refurnish/internal/usecase/profiling"
	usageuc "github.com/kailas-cloud/refurnish/internal/usecase/usage"
	visionuc "github.com/kailas-cloud/refurnish/internal/usecase/vision"
	"github.com/kailas-cloud/refurnish/internal/version"
)

func main() {
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load()

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

	logger.Info("Starting refurnish API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vision_provider", cfg.Vision.Provider),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	ctx := context.Background()

	// The store is optional: without it answers are not cached and budget
	// counters live in memory only.
	var store db.Store
	if cfg.Cache.Enabled {
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer rs.Close()

		if err := rs.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		store = rs
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterVisionMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	products, err := staticdata.LoadCatalog(cfg.Catalog.ProductsPath)
	if err != nil {
		logger.Fatal("Failed to load product catalog", zap.Error(err))
	}
	references, err := staticdata.LoadReferences(cfg.Catalog.ReferencesPath)
	if err != nil {
		logger.Fatal("Failed to load reference objects", zap.Error(err))
	}
	prompts, err := prompt.NewEngine()
	if err != nil {
		logger.Fatal("Failed to load instruction templates", zap.Error(err))
	}
	logger.Info("Static data loaded",
		zap.Int("products", products.Len()),
		zap.Int("reference_objects", len(references.List())),
	)

	base, err := buildProvider(ctx, cfg.Vision, logger)
	if err != nil {
		logger.Fatal("Failed to create vision provider", zap.Error(err))
	}
	// Single BudgetTracker shared by every task and the usage report.
	budget := buildBudget(ctx, cfg, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker visionuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}
	vision := buildVisionClient(cfg, base, store, budgetChecker, logger)

	// Create use case services
	calibrator := calibrationuc.New(vision, prompts, references, logger)
	profiler := profilinguc.New(vision, prompts, logger)
	concepts := conceptuc.New(vision, prompts, logger)
	matcher := matchinguc.New(products)

	pc := cfg.Pipeline
	maxPhotoBytes := int64(pc.MaxUploadMB) << 20
	pipelineSvc := pipelineuc.New(calibrator, profiler, concepts, matcher, pipelineuc.Config{
		UploadDir:        pc.UploadDir,
		MaxPhotos:        pc.MaxPhotos,
		MaxPhotoBytes:    maxPhotoBytes,
		TopN:             pc.MaxRecommendations,
		Tolerance:        pc.SearchTolerance,
		ParallelAnalysis: *pc.ParallelAnalysis,
		ParallelMatching: *pc.ParallelMatching,
		MatchingWorkers:  pc.MatchingWorkers,
	}, logger)

	// Pass nil interface (not typed nil pointer) when no store is configured.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	var visionHealth healthuc.VisionChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		visionHealth = hc
	}
	healthSvc := healthuc.New(pinger, visionHealth)
	usageSvc := usageuc.New(cfg.Vision.Provider, budgetReader)

	server := chiTransport.NewServer(pipelineSvc, matcher, references, usageSvc, healthSvc, chiTransport.Options{
		MaxPhotos:       pc.MaxPhotos,
		MaxUploadBytes:  maxPhotoBytes,
		DefaultLanguage: placement.Language(pc.Language),
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// buildProvider creates the bare provider transport (with transport metrics built-in).
func buildProvider(ctx context.Context, vc config.VisionConfig, logger *zap.Logger) (domain.VisionClient, error) {
	models := make(map[domain.Task]string, len(vc.Models))
	for task, model := range vc.Models {
		models[domain.Task(task)] = model
	}

	switch vc.Provider {
	case config.ProviderGemini:
		return genaiVision.NewVision(ctx, &genaiVision.Config{
			APIKey:   vc.APIKey,
			BaseURL:  vc.BaseURL,
			Models:   models,
			Provider: vc.Provider,
			Logger:   logger,
		})
	case config.ProviderOpenAI:
		return openaiVision.NewVision(&openaiVision.Config{
			APIKey:   vc.APIKey,
			BaseURL:  vc.BaseURL,
			Model:    vc.Model,
			Models:   models,
			Provider: vc.Provider,
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", vc.Provider)
	}
}

// buildBudget creates the token budget tracker, nil when no limit is configured.
func buildBudget(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) *visionuc.BudgetTracker {
	bc := cfg.Vision.Budget
	if bc.DailyTokenLimit == 0 && bc.MonthlyTokenLimit == 0 {
		return nil
	}
	action := visionuc.BudgetActionWarn
	if bc.Action == string(visionuc.BudgetActionReject) {
		action = visionuc.BudgetActionReject
	}
	tracker := visionuc.NewBudgetTracker(
		cfg.Vision.Provider, bc.DailyTokenLimit, bc.MonthlyTokenLimit, action, logger,
	)
	// Connect persistence store: loads current counters from Redis.
	if store != nil {
		tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultRetention))
	}
	return tracker
}

// buildVisionClient assembles the decorator chain: provider -> Cached -> Instrumented.
// Cache hits report zero tokens to the budget.
func buildVisionClient(
	cfg config.Config,
	base domain.VisionClient,
	store db.Store,
	budget visionuc.BudgetChecker,
	logger *zap.Logger,
) domain.VisionClient {
	client := base
	if store != nil {
		client = visioncache.New(base, store, time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.VisionCacheTotal, logger)
	}

	rc := cfg.Vision.Retry
	retry := visionuc.RetryPolicy{
		MaxRetries:      rc.MaxRetries,
		InitialInterval: time.Duration(rc.InitialIntervalMs) * time.Millisecond,
		MaxInterval:     time.Duration(rc.MaxIntervalMs) * time.Millisecond,
	}

	return visionuc.NewInstrumentedClient(client, visionuc.Options{
		Provider: cfg.Vision.Provider,
		Budget:   budget,
		Retry:    retry,
		Timeout:  time.Duration(cfg.Vision.TimeoutSec) * time.Second,
		Logger:   logger,
	})
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			// Canonical log line. Upload bodies make content_length the photo payload size.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
