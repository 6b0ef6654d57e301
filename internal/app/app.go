// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockscan/internal/adapters/frappe"
	redis_a "github.com/ammerola/stockscan/internal/adapters/redis_adapter"
	"github.com/ammerola/stockscan/internal/adapters/sqlite"
	"github.com/ammerola/stockscan/internal/adapters/storage"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/internal/pkg/config"
	"github.com/ammerola/stockscan/internal/pkg/logger"
	"github.com/ammerola/stockscan/internal/workers"
)

// HealthChecker is a dependency that can report on itself.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options controls which optional dependencies New connects.
type Options struct {
	// Redis connects the cache. It is forced on by the redis store driver.
	Redis bool
}

// App holds the wired dependencies shared by the binaries.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store       ports.KeyValueStore
	StoreHealth HealthChecker
	Redis       *redis.Client
	Cache       ports.CacheRepository
	Exports     *storage.S3Storage

	Session  *frappe.Session
	Client   *frappe.Client
	Uploader *frappe.Uploader

	Records   *services.RecordService
	Cart      *services.Cart
	Submitter *services.Submitter
	Dashboard *services.Dashboard
	Stock     *services.StockService
	Jobs      *workers.JobTracker

	closers []func() error
}

// Setup loads configuration and installs the configured logger, which
// writes to output (stdout, stderr or file:<path>).
func Setup(ctx context.Context, service, version, output string) (*config.Config, *slog.Logger, error) {
	slogger := logger.Setup(&logger.LogConfig{
		Level:       "info",
		Format:      "json",
		Output:      output,
		ServiceName: service,
	})

	cfg, err := config.Load(slogger)
	if err != nil {
		return nil, slogger, fmt.Errorf("failed to load configuration: %w", err)
	}

	slogger = logger.Setup(&logger.LogConfig{
		Level:          cfg.Log.Level,
		Format:         cfg.Log.Format,
		Output:         output,
		AddSource:      cfg.Log.AddSource,
		Environment:    cfg.App.Environment,
		ServiceName:    service,
		ServiceVersion: version,
	})

	provider, err := config.NewSecretsProvider(ctx, cfg, slogger)
	if err != nil {
		return nil, slogger, err
	}
	if err := config.ResolveSecrets(ctx, cfg, provider); err != nil {
		return nil, slogger, err
	}

	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.Log.Level),
		slog.String("storage_driver", cfg.Storage.Driver))
	return cfg, slogger, nil
}

// New connects storage and the backend and builds the services. The
// returned App must be closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if opts.Redis || cfg.Storage.Driver == "redis" {
		if err := a.connectRedis(ctx); err != nil {
			return nil, err
		}
	}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if cfg.Storage.S3Exports && a.Exports == nil {
		exports, err := storage.NewS3Storage(ctx, a.s3Config(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize export storage: %w", err)
		}
		a.Exports = exports
	}

	a.Session, err = frappe.NewSession(frappe.SessionConfig{
		BaseURL:     cfg.Backend.BaseURL,
		ClientID:    cfg.Backend.ClientID,
		RedirectURI: cfg.Backend.RedirectURI,
		Scope:       cfg.Backend.Scope,
		StoreKey:    frappe.DefaultSessionKey,
		Timeout:     cfg.Backend.PingTimeout,
	}, a.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	a.Client, err = frappe.NewClient(frappe.Config{
		BaseURL:     cfg.Backend.BaseURL,
		Timeout:     cfg.Backend.Timeout,
		PingTimeout: cfg.Backend.PingTimeout,
		RateLimit:   cfg.Backend.RateLimit,
		Burst:       cfg.Backend.RateBurst,
		UserAgent:   cfg.App.Name + "/" + cfg.App.Version,
	}, a.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}

	a.Uploader = frappe.NewUploader(a.Client, frappe.UploadConfig{
		Timeout:       cfg.Upload.Timeout,
		MaxSizeBytes:  cfg.UploadMaxBytes(),
		DefaultFolder: cfg.Upload.Folder,
	}, logger)

	a.Records = services.NewRecordService(a.Client, a.Session, a.Uploader, logger)
	a.Cart = services.NewCart(a.Client, a.Session, a.Store, services.CartConfig{
		Key:         cfg.Scanner.CartKey,
		Cooldown:    cfg.Scanner.Cooldown,
		RescanDelay: cfg.Scanner.RescanDelay,
	}, logger)
	a.Submitter = services.NewSubmitter(a.Client, a.Session, a.Cart, logger)
	a.Dashboard = services.NewDashboard(a.Client, a.Session, cfg.Dashboard.LowStockMethod, logger)
	a.Stock = services.NewStockService(a.Client, a.Session, logger)
	a.Jobs = workers.NewJobTracker(a.Store, logger)

	a.Cart.Load(ctx)

	logger.Info("dependencies initialized",
		slog.String("backend", a.Client.BaseURL()),
		slog.Bool("redis", a.Redis != nil),
		slog.Bool("s3_exports", a.Exports != nil))
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	cfg := a.Config.Redis
	a.Logger.Info("connecting to Redis",
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port))

	client := redis.NewClient(&redis.Options{
		Addr:         a.Config.GetRedisAddress(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	a.Redis = client
	a.Cache = redis_a.NewCache(client, cfg.TTL, a.Logger)
	a.closers = append(a.closers, client.Close)
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Storage.Driver {
	case "", "sqlite":
		db, err := sqlite.NewDatabase(ctx, &sqlite.Config{
			Path:        a.Config.Storage.SQLitePath,
			BusyTimeout: 5 * time.Second,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := sqlite.Migrate(db, a.Logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.Store = sqlite.NewKVStore(db.DB(), a.Logger)
		a.StoreHealth = db

	case "redis":
		kv := redis_a.NewKVStore(a.Redis, a.Config.Storage.KeyPrefix, a.Logger)
		a.Store = kv
		a.StoreHealth = kv

	case "s3":
		s3s, err := storage.NewS3Storage(ctx, a.s3Config(), a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		a.Store = s3s
		a.StoreHealth = s3s
		if a.Config.Storage.S3Exports {
			a.Exports = s3s
		}

	default:
		return fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
	return nil
}

func (a *App) s3Config() *storage.S3Config {
	return &storage.S3Config{
		Region:          a.Config.AWS.Region,
		Bucket:          a.Config.AWS.S3Bucket,
		Prefix:          a.Config.AWS.S3Prefix,
		AccessKeyID:     a.Config.AWS.AccessKeyID,
		SecretAccessKey: a.Config.AWS.SecretAccessKey,
		Endpoint:        a.Config.AWS.S3Endpoint,
		UsePathStyle:    a.Config.AWS.UsePathStyle,
	}
}

// SignIn logs in with the configured password grant when no token is
// stored. Without configured credentials it does nothing.
func (a *App) SignIn(ctx context.Context) error {
	if a.Session.Current(ctx).AccessToken != "" {
		return nil
	}
	if a.Config.Backend.Username == "" {
		a.Logger.WarnContext(ctx, "no stored session and no backend credentials configured")
		return nil
	}
	return a.Session.Login(ctx, a.Config.Backend.Username, a.Config.Backend.Password)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
