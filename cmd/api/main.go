// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/app"
	"github.com/ammerola/stockscan/internal/handlers"
	"github.com/ammerola/stockscan/internal/handlers/middleware"
	"github.com/ammerola/stockscan/internal/pkg/config"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

const exportMaxRows = 50000

func main() {
	ctx := context.Background()

	cfg, slogger, err := app.Setup(ctx, "stockscan-api", Version, "stdout")
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger.Info("starting stockscan api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	if err := deps.app.SignIn(ctx); err != nil {
		// Backend calls answer 401 until stockctl login stores a session.
		slogger.Warn("initial sign-in failed", slog.String("error", err.Error()))
	}

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	app              *app.App
	asynqClient      *asynq.Client
	asynqInspector   *asynq.Inspector
	healthHandler    *handlers.HealthHandler
	recordHandler    *handlers.RecordHandler
	cartHandler      *handlers.CartHandler
	dashboardHandler *handlers.DashboardHandler
	exportHandler    *handlers.ExportHandler
	fileHandler      *handlers.FileHandler
	jobHandler       *handlers.JobHandler
}

func (d *dependencies) cleanup() {
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
	if d.asynqInspector != nil {
		d.asynqInspector.Close()
	}
	if d.app != nil {
		d.app.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	a, err := app.New(ctx, cfg, logger, app.Options{Redis: true})
	if err != nil {
		return nil, err
	}
	deps := &dependencies{app: a}

	logger.Info("initializing Asynq client")
	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)

	// A nil *S3Storage must stay a nil interface.
	var exports handlers.ExportStore
	if a.Exports != nil {
		exports = a.Exports
	}

	deps.healthHandler = handlers.NewHealthHandler(
		a.Client,
		a.Redis,
		a.StoreHealth,
		deps.asynqInspector,
		cfg,
		logger,
	)
	deps.recordHandler = handlers.NewRecordHandler(a.Records, int64(cfg.Server.MaxUploadMemoryMB)<<20, logger)
	deps.cartHandler = handlers.NewCartHandler(a.Cart, a.Submitter, logger)
	deps.dashboardHandler = handlers.NewDashboardHandler(a.Dashboard, a.Stock, a.Cache, cfg.Dashboard.CacheTTL, logger)
	deps.exportHandler = handlers.NewExportHandler(a.Records, workbook.NewExcelExporter(exportMaxRows, logger), exports, logger)
	deps.fileHandler = handlers.NewFileHandler(a.Uploader, deps.asynqClient, a.Jobs, cfg.UploadMaxBytes(), cfg.Upload.TempDir, logger)
	deps.fileHandler.SetMaxRetry(cfg.Asynq.RetryMax)
	deps.jobHandler = handlers.NewJobHandler(a.Jobs, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID(cfg.Security.RequestIDHeader),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	}
	if cfg.Security.RateLimitRequests > 0 {
		middlewares = append(middlewares, middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration))
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		middlewares = append(middlewares, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	middlewares = append(middlewares, middleware.SecureHeaders)

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        middleware.Chain(mux, middlewares...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies) {
	apiV1 := "/api/v1"

	// Health and readiness endpoints
	mux.HandleFunc("GET /health", deps.healthHandler.Health)
	mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
	mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)

	// Records
	mux.HandleFunc("GET "+apiV1+"/records/{doctype}", deps.recordHandler.ListRecords)
	mux.HandleFunc("GET "+apiV1+"/records/{doctype}/{name}", deps.recordHandler.GetRecord)
	mux.HandleFunc("PUT "+apiV1+"/records/{doctype}/{name}", deps.recordHandler.UpdateRecord)
	mux.HandleFunc("GET "+apiV1+"/options/{kind}", deps.recordHandler.ListOptions)

	// Create forms
	mux.HandleFunc("POST "+apiV1+"/items", deps.recordHandler.CreateItem)
	mux.HandleFunc("POST "+apiV1+"/item-groups", deps.recordHandler.CreateItemGroup)
	mux.HandleFunc("POST "+apiV1+"/uoms", deps.recordHandler.CreateUOM)
	mux.HandleFunc("POST "+apiV1+"/warehouses", deps.recordHandler.CreateWarehouse)

	// Scan cart
	mux.HandleFunc("GET "+apiV1+"/cart", deps.cartHandler.GetCart)
	mux.HandleFunc("POST "+apiV1+"/cart/scan", deps.cartHandler.Scan)
	mux.HandleFunc("PUT "+apiV1+"/cart/items/{code}", deps.cartHandler.UpdateQuantity)
	mux.HandleFunc("DELETE "+apiV1+"/cart/items/{code}", deps.cartHandler.RemoveItem)
	mux.HandleFunc("DELETE "+apiV1+"/cart", deps.cartHandler.ClearCart)
	mux.HandleFunc("POST "+apiV1+"/cart/submit", deps.cartHandler.Submit)

	// Dashboard and stock
	mux.HandleFunc("GET "+apiV1+"/dashboard", deps.dashboardHandler.GetDashboard)
	mux.HandleFunc("GET "+apiV1+"/stock", deps.dashboardHandler.GetStock)

	// Files, imports and jobs
	mux.HandleFunc("POST "+apiV1+"/files", deps.fileHandler.UploadFile)
	mux.HandleFunc("POST "+apiV1+"/items/import", deps.fileHandler.ImportItems)
	mux.HandleFunc("GET "+apiV1+"/jobs/{id}", deps.jobHandler.GetJob)

	// Export
	mux.HandleFunc("GET "+apiV1+"/export/{doctype}", deps.exportHandler.ExportList)
}
