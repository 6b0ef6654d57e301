// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockscan/internal/adapters/sqlite"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/pkg/config"
)

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB opens a migrated in-memory SQLite database
func SetupTestDB(t *testing.T) *sqlite.Database {
	t.Helper()

	database, err := sqlite.NewDatabase(context.Background(), &sqlite.Config{
		Path: ":memory:",
	}, TestLogger())
	require.NoError(t, err, "Could not open SQLite database")

	t.Cleanup(func() {
		database.Close()
	})

	require.NoError(t, sqlite.Migrate(database, TestLogger()), "Could not run migrations")
	return database
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// SetupMockDB creates a mock database for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		db.Close()
	})

	return mock, db
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "stockscan-test",
			Environment: "test",
			Version:     "test",
			Debug:       true,
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "text",
		},
		Backend: config.BackendConfig{
			BaseURL:     "http://erp.test",
			ClientID:    "test-client",
			Scope:       "all openid",
			PingTimeout: 5 * time.Second,
			RateLimit:   10,
			RateBurst:   20,
		},
		Upload: config.UploadConfig{
			Timeout:   60 * time.Second,
			MaxSizeMB: 25,
			Folder:    "Home",
			TempDir:   os.TempDir(),
		},
		Scanner: config.ScannerConfig{
			Cooldown:    2 * time.Second,
			RescanDelay: time.Second,
			CartKey:     domain.DefaultCartKey,
		},
		Storage: config.StorageConfig{
			Driver:     "sqlite",
			SQLitePath: ":memory:",
			KeyPrefix:  "stockscan",
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Asynq: config.AsynqConfig{
			RedisAddr:        "localhost:6379",
			Concurrency:      2,
			Queues:           map[string]int{"critical": 6, "default": 3, "low": 1},
			RetryMax:         3,
			DashboardRefresh: "@every 5m",
		},
		AWS: config.AWSConfig{
			Region:        "us-east-1",
			S3Bucket:      "stockscan-test",
			SecretsSource: "env",
		},
		Dashboard: config.DashboardConfig{
			LowStockMethod: "get_low_stock_items",
			CacheTTL:       time.Minute,
		},
		Security: config.SecurityConfig{
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			RequestIDHeader:   "X-Request-ID",
		},
		Server: config.ServerConfig{
			Host:              "localhost",
			Port:              "8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      90 * time.Second,
			MaxUploadMemoryMB: 32,
		},
	}
}

// CreateTestItemRecord creates an Item record as the backend returns it
func CreateTestItemRecord(code string, overrides ...func(domain.Record)) domain.Record {
	record := domain.Record{
		"name":       code,
		"item_code":  code,
		"item_name":  "Test Item " + code,
		"item_group": "Products",
		"stock_uom":  "Nos",
		"disabled":   0,
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// CreateTestRecords creates count Item records with sequential codes
func CreateTestRecords(count int) []domain.Record {
	records := make([]domain.Record, count)
	for i := 0; i < count; i++ {
		records[i] = CreateTestItemRecord(fmt.Sprintf("ITEM-%03d", i+1))
	}
	return records
}

// MemoryStore is an in-memory KeyValueStore with failure injection
type MemoryStore struct {
	mu        sync.Mutex
	data      map[string]string
	SetErr    error
	GetErr    error
	DeleteErr error
	Writes    int
}

var _ ports.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	m.Writes++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.data, key)
	return nil
}

// Raw returns the stored value without failure injection
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Put stores a value without failure injection
func (m *MemoryStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// FakeClock is a settable clock for cooldown tests
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts a clock at t
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}
