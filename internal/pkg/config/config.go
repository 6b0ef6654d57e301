// internal/pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingRequiredConfig is returned when a required setting is empty.
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Backend   BackendConfig
	Upload    UploadConfig
	Scanner   ScannerConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Asynq     AsynqConfig
	AWS       AWSConfig
	Dashboard DashboardConfig
	Security  SecurityConfig
	Server    ServerConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	Debug       bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string
	Format    string // json, text
	AddSource bool
}

// BackendConfig describes the Frappe site and its OAuth2 client.
type BackendConfig struct {
	BaseURL     string `required:"true"`
	ClientID    string
	RedirectURI string
	Scope       string
	Username    string
	Password    string
	Timeout     time.Duration
	PingTimeout time.Duration
	RateLimit   float64
	RateBurst   int
}

// UploadConfig holds file upload configuration
type UploadConfig struct {
	Timeout   time.Duration
	MaxSizeMB int
	Folder    string
	TempDir   string
}

// ScannerConfig holds scan cart configuration
type ScannerConfig struct {
	Cooldown    time.Duration
	RescanDelay time.Duration
	CartKey     string
}

// StorageConfig selects where the cart snapshot and session live.
type StorageConfig struct {
	Driver     string // sqlite, redis, s3
	SQLitePath string
	KeyPrefix  string
	// S3Exports keeps stored exports in aws.s3_bucket.
	S3Exports bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	TTL          time.Duration
}

// AsynqConfig holds Asynq configuration
type AsynqConfig struct {
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	Concurrency      int
	Queues           map[string]int // queue name -> priority
	StrictPriority   bool
	RetryMax         int
	ShutdownTimeout  time.Duration
	DashboardRefresh string // cron spec
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
	S3Prefix        string
	SecretName      string
	SecretsSource   string // env, aws
}

// DashboardConfig holds dashboard configuration
type DashboardConfig struct {
	LowStockMethod string
	CacheTTL       time.Duration
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimitRequests int
	RateLimitDuration time.Duration
	AllowedOrigins    []string
	RequestIDHeader   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GracefulTimeout   time.Duration
	MaxUploadMemoryMB int
}

// Load loads configuration from the optional config file and the
// environment. Environment variables win; BACKEND_BASE_URL sets
// backend.base_url.
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Load .env file in development
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Debug("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded successfully")
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, env)

	if err := readConfigFile(v, logger); err != nil {
		return nil, err
	}

	cfg := FromViper(v, env)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, logger *slog.Logger) error {
	if path := os.Getenv("STOCKSCAN_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		logger.Info("config file loaded", slog.String("path", path))
		return nil
	}

	v.SetConfigName("stockscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/stockscan")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	logger.Info("config file loaded", slog.String("path", v.ConfigFileUsed()))
	return nil
}

// FromViper builds a Config from v, which must already hold defaults.
func FromViper(v *viper.Viper, env string) *Config {
	redisHost := v.GetString("redis.host")
	redisPort := v.GetString("redis.port")

	asynqAddr := v.GetString("asynq.redis_addr")
	if asynqAddr == "" {
		asynqAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	return &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Environment: env,
			Version:     v.GetString("app.version"),
			Debug:       v.GetBool("app.debug"),
		},
		Log: LogConfig{
			Level:     v.GetString("log.level"),
			Format:    v.GetString("log.format"),
			AddSource: v.GetBool("log.add_source"),
		},
		Backend: BackendConfig{
			BaseURL:     strings.TrimRight(v.GetString("backend.base_url"), "/"),
			ClientID:    v.GetString("backend.client_id"),
			RedirectURI: v.GetString("backend.redirect_uri"),
			Scope:       v.GetString("backend.scope"),
			Username:    v.GetString("backend.username"),
			Password:    v.GetString("backend.password"),
			Timeout:     v.GetDuration("backend.timeout"),
			PingTimeout: v.GetDuration("backend.ping_timeout"),
			RateLimit:   v.GetFloat64("backend.rate_limit"),
			RateBurst:   v.GetInt("backend.rate_burst"),
		},
		Upload: UploadConfig{
			Timeout:   v.GetDuration("upload.timeout"),
			MaxSizeMB: v.GetInt("upload.max_size_mb"),
			Folder:    v.GetString("upload.folder"),
			TempDir:   v.GetString("upload.temp_dir"),
		},
		Scanner: ScannerConfig{
			Cooldown:    v.GetDuration("scanner.cooldown"),
			RescanDelay: v.GetDuration("scanner.rescan_delay"),
			CartKey:     v.GetString("scanner.cart_key"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(v.GetString("storage.driver")),
			SQLitePath: v.GetString("storage.sqlite_path"),
			KeyPrefix:  v.GetString("storage.key_prefix"),
			S3Exports:  v.GetBool("storage.s3_exports"),
		},
		Redis: RedisConfig{
			Host:         redisHost,
			Port:         redisPort,
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			MaxRetries:   v.GetInt("redis.max_retries"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			TTL:          v.GetDuration("redis.ttl"),
		},
		Asynq: AsynqConfig{
			RedisAddr:        asynqAddr,
			RedisPassword:    v.GetString("redis.password"),
			RedisDB:          v.GetInt("asynq.redis_db"),
			Concurrency:      v.GetInt("asynq.concurrency"),
			Queues:           parseQueues(v.GetString("asynq.queues")),
			StrictPriority:   v.GetBool("asynq.strict_priority"),
			RetryMax:         v.GetInt("asynq.retry_max"),
			ShutdownTimeout:  v.GetDuration("asynq.shutdown_timeout"),
			DashboardRefresh: v.GetString("asynq.dashboard_refresh"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("aws.region"),
			AccessKeyID:     v.GetString("aws.access_key_id"),
			SecretAccessKey: v.GetString("aws.secret_access_key"),
			S3Bucket:        v.GetString("aws.s3_bucket"),
			S3Endpoint:      v.GetString("aws.s3_endpoint"),
			UsePathStyle:    v.GetBool("aws.s3_path_style"),
			S3Prefix:        v.GetString("aws.s3_prefix"),
			SecretName:      v.GetString("aws.secret_name"),
			SecretsSource:   v.GetString("aws.secrets_source"),
		},
		Dashboard: DashboardConfig{
			LowStockMethod: v.GetString("dashboard.low_stock_method"),
			CacheTTL:       v.GetDuration("dashboard.cache_ttl"),
		},
		Security: SecurityConfig{
			RateLimitRequests: v.GetInt("security.rate_limit_requests"),
			RateLimitDuration: v.GetDuration("security.rate_limit_duration"),
			AllowedOrigins:    splitList(v.GetString("security.allowed_origins")),
			RequestIDHeader:   v.GetString("security.request_id_header"),
		},
		Server: ServerConfig{
			Host:              v.GetString("server.host"),
			Port:              v.GetString("server.port"),
			ReadTimeout:       v.GetDuration("server.read_timeout"),
			WriteTimeout:      v.GetDuration("server.write_timeout"),
			IdleTimeout:       v.GetDuration("server.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("server.max_header_bytes"),
			GracefulTimeout:   v.GetDuration("server.graceful_timeout"),
			MaxUploadMemoryMB: v.GetInt("server.max_upload_memory_mb"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validators := []Validator{&BasicValidator{}}
	if c.IsProduction() {
		validators = append(validators, &ProductionValidator{})
	}
	for _, v := range validators {
		if err := v.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// GetServerAddress returns the formatted server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetRedisAddress returns host:port of the Redis server
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// UploadMaxBytes returns the upload size limit in bytes.
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.Upload.MaxSizeMB) << 20
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("app.name", "stockscan")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.debug", env == "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.add_source", false)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.client_id", "")
	v.SetDefault("backend.redirect_uri", "")
	v.SetDefault("backend.scope", "all openid")
	v.SetDefault("backend.username", "")
	v.SetDefault("backend.password", "")
	v.SetDefault("backend.timeout", 0)
	v.SetDefault("backend.ping_timeout", 5*time.Second)
	v.SetDefault("backend.rate_limit", 10.0)
	v.SetDefault("backend.rate_burst", 20)

	v.SetDefault("upload.timeout", 60*time.Second)
	v.SetDefault("upload.max_size_mb", 25)
	v.SetDefault("upload.folder", "Home")
	v.SetDefault("upload.temp_dir", os.TempDir())

	v.SetDefault("scanner.cooldown", 2*time.Second)
	v.SetDefault("scanner.rescan_delay", time.Second)
	v.SetDefault("scanner.cart_key", "scannedItems")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "stockscan.db")
	v.SetDefault("storage.key_prefix", "stockscan")
	v.SetDefault("storage.s3_exports", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.ttl", time.Hour)

	v.SetDefault("asynq.redis_addr", "")
	v.SetDefault("asynq.redis_db", 0)
	v.SetDefault("asynq.concurrency", 5)
	v.SetDefault("asynq.queues", "critical:6,default:3,low:1")
	v.SetDefault("asynq.strict_priority", false)
	v.SetDefault("asynq.retry_max", 3)
	v.SetDefault("asynq.shutdown_timeout", 30*time.Second)
	v.SetDefault("asynq.dashboard_refresh", "@every 5m")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.s3_bucket", "stockscan-state")
	v.SetDefault("aws.s3_endpoint", "")
	v.SetDefault("aws.s3_path_style", env == "development")
	v.SetDefault("aws.s3_prefix", "carts")
	v.SetDefault("aws.secret_name", "")
	v.SetDefault("aws.secrets_source", "env")

	v.SetDefault("dashboard.low_stock_method", "get_low_stock_items")
	v.SetDefault("dashboard.cache_ttl", 5*time.Minute)

	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_duration", time.Minute)
	v.SetDefault("security.allowed_origins", "*")
	v.SetDefault("security.request_id_header", "X-Request-ID")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.graceful_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_memory_mb", 32)
}

func parseQueues(s string) map[string]int {
	queues := make(map[string]int)
	for _, part := range splitList(s) {
		name, prio, ok := strings.Cut(part, ":")
		if !ok {
			queues[name] = 1
			continue
		}
		var p int
		if _, err := fmt.Sscanf(prio, "%d", &p); err != nil || p <= 0 {
			p = 1
		}
		queues[name] = p
	}
	return queues
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
