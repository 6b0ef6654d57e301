// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockscan/internal/app"
	"github.com/ammerola/stockscan/internal/workers"
)

// Version is injected at compile time
var Version = "dev"

const cleanupSchedule = "@hourly"

func main() {
	ctx := context.Background()

	cfg, slogger, err := app.Setup(ctx, "stockscan-worker", Version, "stdout")
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	a, err := app.New(ctx, cfg, slogger, app.Options{Redis: true})
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	if err := a.SignIn(ctx); err != nil {
		slogger.Warn("initial sign-in failed", slog.String("error", err.Error()))
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.Asynq.Concurrency,
			Queues:          cfg.Asynq.Queues,
			StrictPriority:  cfg.Asynq.StrictPriority,
			ErrorHandler:    asynq.ErrorHandlerFunc(handleError),
			RetryDelayFunc:  exponentialBackoff,
			ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
			HealthCheckFunc: healthCheck,
			Logger:          newAsynqLogger(slogger),
		},
	)

	mux := asynq.NewServeMux()

	dashboardProcessor := workers.NewDashboardProcessor(a.Dashboard, a.Cache, cfg.Dashboard.CacheTTL, slogger)
	mux.HandleFunc(workers.TypeDashboardRefresh, dashboardProcessor.ProcessDashboardRefresh)

	attachmentProcessor := workers.NewAttachmentProcessor(a.Uploader, a.Jobs, slogger)
	mux.HandleFunc(workers.TypeAttachmentUpload, attachmentProcessor.ProcessAttachmentUpload)

	importProcessor := workers.NewImportProcessor(a.Records, a.Jobs, slogger)
	mux.HandleFunc(workers.TypeItemsImport, importProcessor.ProcessItemsImport)

	cleanupProcessor := workers.NewCleanupProcessor(cfg.Upload.TempDir, slogger)
	mux.HandleFunc(workers.TypeCleanupStagedFiles, cleanupProcessor.CleanupStagedFiles)

	scheduler, err := newScheduler(redisOpt, cfg.Asynq.DashboardRefresh, cfg.Asynq.RetryMax, slogger)
	if err != nil {
		slogger.Error("failed to register periodic tasks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			slogger.Error("failed to run scheduler", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

func newScheduler(redisOpt asynq.RedisClientOpt, dashboardSpec string, maxRetry int, logger *slog.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: newAsynqLogger(logger),
	})

	if dashboardSpec != "" {
		id, err := scheduler.Register(dashboardSpec, workers.NewDashboardRefreshTask(),
			asynq.Queue("low"), asynq.MaxRetry(maxRetry))
		if err != nil {
			return nil, fmt.Errorf("failed to schedule dashboard refresh: %w", err)
		}
		logger.Info("periodic task registered",
			slog.String("type", workers.TypeDashboardRefresh),
			slog.String("spec", dashboardSpec),
			slog.String("entry_id", id))
	}

	cleanup, err := workers.NewCleanupTask(workers.DefaultStagedFileMaxAge)
	if err != nil {
		return nil, err
	}
	id, err := scheduler.Register(cleanupSchedule, cleanup, asynq.Queue("low"), asynq.MaxRetry(maxRetry))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule staged file cleanup: %w", err)
	}
	logger.Info("periodic task registered",
		slog.String("type", workers.TypeCleanupStagedFiles),
		slog.String("spec", cleanupSchedule),
		slog.String("entry_id", id))

	return scheduler, nil
}

func handleError(ctx context.Context, task *asynq.Task, err error) {
	slog.ErrorContext(ctx, "task processing failed",
		slog.String("type", task.Type()),
		slog.String("error", err.Error()))
}

func exponentialBackoff(n int, e error, t *asynq.Task) time.Duration {
	baseDelay := time.Second
	maxDelay := 10 * time.Minute
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func healthCheck(err error) {
	if err != nil {
		slog.Error("worker health check failed", slog.String("error", err.Error()))
	}
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
