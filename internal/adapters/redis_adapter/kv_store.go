// internal/adapters/redis_adapter/kv_store.go
package redis_a

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// KVStore keeps client state in Redis without expiry, so several scan
// stations can share one cart and session.
type KVStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Statically assert that *KVStore implements the KeyValueStore interface.
var _ ports.KeyValueStore = (*KVStore)(nil)

// NewKVStore creates a store whose keys are namespaced under prefix.
func NewKVStore(client *redis.Client, prefix string, logger *slog.Logger) *KVStore {
	return &KVStore{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("store", "redis")),
	}
}

func (s *KVStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Get returns the value stored under key or domain.ErrKeyNotFound.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", key, domain.ErrKeyNotFound)
		}
		return "", fmt.Errorf("redis get error: %w", err)
	}
	return v, nil
}

// Set stores value under key.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		s.logger.ErrorContext(ctx, "failed to store value",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Health pings the server behind the store.
func (s *KVStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}
