// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/database"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/common/notify"
	"churn-predictor/internal/common/observability"
	"churn-predictor/internal/jobs"
	"churn-predictor/internal/server"
	"churn-predictor/internal/serving"
	"churn-predictor/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting churn prediction service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	var repo *store.Store
	if err != nil {
		zapLog.Warn("postgres unavailable, persistence disabled", zap.Error(err))
	} else {
		defer pg.Close()
		repo = store.New(pg.DB, log)
		if err := repo.CreateTables(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Redis with retry ---
	var cache *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		cache, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return cache.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Warn("redis unavailable, prediction cache disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init retention alerts ---
	alerts, err := notify.NewSender(ctx, cfg.Alerts, log)
	if err != nil {
		zapLog.Warn("retention alerts disabled", zap.Error(err))
	}

	// --- Serving engine ---
	var predictionStore serving.PredictionStore
	if repo != nil {
		predictionStore = repo
	}
	engine := serving.NewEngine(cfg, predictionStore, cache, alerts, obs, log)

	// --- Training coordinator ---
	var jobStore jobs.Store = jobs.NewMemoryStore()
	var sink jobs.MetricsSink
	if repo != nil {
		jobStore = repo
		sink = repo
	}
	pipeline := jobs.NewPipeline(cfg.Training, cfg.Models, sink, log)
	coord := jobs.NewCoordinator(pipeline, jobStore, cfg.Training, log)
	coord.SetOnComplete(func(result *jobs.PipelineResult) {
		if err := engine.Reload(result); err != nil {
			log.WithError(err).Error("hot swap after training failed", nil)
		}
	})

	workerCtx, stopWorkers := context.WithCancel(ctx)
	coord.Start(workerCtx)

	// --- HTTP server ---
	var serverRepo server.Repository
	if repo != nil {
		serverRepo = repo
	}
	srv := server.New(cfg, engine, coord, serverRepo, log)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: srv.Router(),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("http shutdown", zap.Error(err))
	}

	stopWorkers()
	coord.Wait()
	zapLog.Info("Shutdown complete")
}
