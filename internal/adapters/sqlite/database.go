// internal/adapters/sqlite/database.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Path:        "stockscan.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Database wraps the SQLite handle holding local client state.
type Database struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// NewDatabase opens the database file and applies connection pragmas.
func NewDatabase(ctx context.Context, config *Config, logger *slog.Logger) (*Database, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// pragmas are per connection and :memory: databases are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	logger.Info("database opened", slog.String("path", config.Path))

	return &Database{db: db, config: config, logger: logger}, nil
}

// NewDatabaseFromDB wraps an existing handle.
func NewDatabaseFromDB(db *sql.DB, logger *slog.Logger) *Database {
	return &Database{db: db, config: DefaultConfig(), logger: logger}
}

// DB returns the underlying handle.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Health checks that the database answers.
func (d *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (d *Database) Close() error {
	d.logger.Info("closing database")
	return d.db.Close()
}
