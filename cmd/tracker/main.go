package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/application/services"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/config"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/birdeye"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/cache"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/database"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/infrastructure/pumpportal"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/presentation/handlers"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting token tracker",
		zap.String("feed_url", cfg.Feed.WSURL),
		zap.Duration("refresh_interval", cfg.Tracker.RefreshInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(cfg.Redis, cfg.Birdeye.OverviewTTL, cfg.Birdeye.StaleRetentionFactor, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	// Create repositories
	tokenRepo := database.NewTokenRepo(db.DB())
	poolRepo := database.NewPoolRepo(db.DB())
	historyRepo := database.NewStatusHistoryRepo(db.DB())
	snapshotRepo := database.NewSnapshotRepo(db.DB())
	scoreRepo := database.NewScoreRepo(db.DB())
	settingsRepo := database.NewSettingsRepo(db.DB())

	// Create services
	provider := birdeye.NewClient(cfg.Birdeye, logger)
	paramsSource := services.NewSettingsParams(settingsRepo, cfg.Scoring, cfg.Export)

	marketData := services.NewMarketDataService(redisCache, provider, snapshotRepo, cfg.Tracker.WorkerCount, logger)
	scoring := services.NewScoringService(tokenRepo, snapshotRepo, scoreRepo, paramsSource, cfg.Tracker.BatchSize, cfg.Tracker.WorkerCount, logger)
	lifecycle := services.NewLifecycleService(tokenRepo, snapshotRepo, historyRepo, paramsSource, cfg.Tracker.BatchSize, logger)
	export := services.NewExportService(tokenRepo, poolRepo, paramsSource, logger)
	retention := services.NewRetentionService(snapshotRepo, scoreRepo, cfg.Tracker.RetentionWindow, logger)
	ingest := services.NewIngestService(tokenRepo, poolRepo, historyRepo, logger)

	// Start discovery feed listener
	if cfg.Feed.Enabled {
		listener := pumpportal.NewListener(cfg.Feed, ingest, logger)
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Feed listener stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("Discovery feed disabled, no new tokens will be tracked")
	}

	// Schedule pipeline jobs
	refreshJob := scheduler.NewJob("metrics-refresh", cfg.Tracker.RefreshInterval, cfg.Tracker.JobTimeout,
		func(ctx context.Context) error {
			return refreshTracked(ctx, tokenRepo, marketData, cfg.Tracker.BatchSize)
		}, logger)
	initialJob := scheduler.NewJob("lifecycle-initial", cfg.Tracker.LifecycleInterval, cfg.Tracker.JobTimeout,
		lifecycle.EvaluateInitialBatch, logger)
	scoringJob := scheduler.NewJob("scoring", cfg.Tracker.ScoringInterval, cfg.Tracker.JobTimeout,
		scoring.ScoreBatch, logger)
	activeJob := scheduler.NewJob("lifecycle-active", cfg.Tracker.LifecycleInterval, cfg.Tracker.JobTimeout,
		lifecycle.EvaluateActiveBatch, logger)
	exportJob := scheduler.NewJob("export", cfg.Tracker.ExportInterval, cfg.Tracker.JobTimeout,
		export.Render, logger)
	retentionJob := scheduler.NewJob("retention", cfg.Tracker.RetentionInterval, cfg.Tracker.JobTimeout,
		retention.Prune, logger)

	jobs := []*scheduler.Job{refreshJob, initialJob, scoringJob, activeJob, exportJob, retentionJob}
	for _, job := range jobs {
		job.Start(ctx)
	}

	// Serve metrics, health and the strategy document
	exportHandler := handlers.NewExportHandler(export, logger)
	go startOpsServer(cfg.Tracker.MetricsPort, db, redisCache, exportHandler, logger)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, stopping tracker...")

	cancel()
	for _, job := range jobs {
		job.Stop()
	}

	logger.Info("Tracker stopped")
}

// refreshTracked records fresh metric snapshots for every token still
// in play (Initial and Active).
func refreshTracked(ctx context.Context, tokenRepo *database.TokenRepo, marketData *services.MarketDataService, batchSize int) error {
	for _, status := range []entities.TokenStatus{entities.StatusInitial, entities.StatusActive} {
		tokens, err := tokenRepo.GetByStatus(ctx, status, batchSize)
		if err != nil {
			return err
		}
		if err := marketData.RefreshBatch(ctx, tokens); err != nil {
			return err
		}
	}
	return nil
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}

func startOpsServer(port int, db *database.PostgresDB, redisCache *cache.RedisCache, exportHandler *handlers.ExportHandler, logger *zap.Logger) {
	healthHandler := handlers.NewHealthHandler(db, redisCache)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/ready", healthHandler.Ready)
	mux.HandleFunc("/config/dynamic_strategy.toml", exportHandler.Strategy)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting ops server", zap.String("addr", addr))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Ops server error", zap.Error(err))
	}
}
