// internal/adapters/sqlite/store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

const kvTable = "kv_store"

// KVStore is a key-value store on a single SQLite table.
type KVStore struct {
	db     *sql.DB
	qb     squirrel.StatementBuilderType
	now    func() time.Time
	logger *slog.Logger
}

// Statically assert that *KVStore implements the KeyValueStore interface.
var _ ports.KeyValueStore = (*KVStore)(nil)

// NewKVStore creates a store over db. The schema must already be migrated.
func NewKVStore(db *sql.DB, logger *slog.Logger) *KVStore {
	return &KVStore{
		db:     db,
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now:    time.Now,
		logger: logger.With(slog.String("store", "sqlite")),
	}
}

// Get returns the value stored under key or domain.ErrKeyNotFound.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	query, args, err := s.qb.Select("value").
		From(kvTable).
		Where(squirrel.Eq{"name": key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}

	var value string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", key, domain.ErrKeyNotFound)
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	query, args, err := s.qb.Insert(kvTable).
		Columns("name", "value", "updated_at").
		Values(key, value, s.now().Unix()).
		Suffix("ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "value stored", slog.String("key", key), slog.Int("bytes", len(value)))
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.qb.Delete(kvTable).
		Where(squirrel.Eq{"name": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := s.qb.Select("name").
		From(kvTable).
		Where(squirrel.Like{"name": prefix + "%"}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
