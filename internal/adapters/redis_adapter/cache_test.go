package redis_a_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/stockscan/internal/adapters/redis_adapter"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/test/helpers"
)

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, 5*time.Minute, helpers.TestLogger())

	stats := domain.DashboardStats{
		ItemCount:      42,
		WarehouseCount: 3,
		EntriesByType:  map[string]int{"Material Receipt": 2},
	}
	require.NoError(t, cache.Set(ctx, "dash:summary", stats))

	var got domain.DashboardStats
	require.NoError(t, cache.Get(ctx, "dash:summary", &got))
	assert.Equal(t, 42, got.ItemCount)
	assert.Equal(t, 3, got.WarehouseCount)
	assert.Equal(t, 2, got.EntriesByType["Material Receipt"])

	var missing string
	assert.ErrorIs(t, cache.Get(ctx, "dash:other", &missing), redis_a.ErrCacheMiss)
}

func TestCache_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, 5*time.Minute, helpers.TestLogger())

	err := cache.SetWithTTL(ctx, "ttl:test", "value", 100*time.Millisecond)
	require.NoError(t, err)

	var result string
	require.NoError(t, cache.Get(ctx, "ttl:test", &result))
	assert.Equal(t, "value", result)

	tr.Server.FastForward(200 * time.Millisecond)

	err = cache.Get(ctx, "ttl:test", &result)
	assert.ErrorIs(t, err, redis_a.ErrCacheMiss)
}

func TestCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, 5*time.Minute, helpers.TestLogger())

	keysToDelete := []string{"list:item:0", "list:item:1", "list:item:2"}
	keysToKeep := []string{"list:warehouse:0", "dash:summary"}

	for _, key := range append(keysToDelete, keysToKeep...) {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.DeletePattern(ctx, "list:item:*"))

	for _, key := range keysToDelete {
		var result string
		assert.ErrorIs(t, cache.Get(ctx, key, &result), redis_a.ErrCacheMiss)
	}
	for _, key := range keysToKeep {
		var result string
		require.NoError(t, cache.Get(ctx, key, &result))
		assert.Equal(t, "value", result)
	}
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, 5*time.Minute, helpers.TestLogger())

	fetchCount := 0
	fetch := func() (interface{}, error) {
		fetchCount++
		return &domain.DashboardStats{ItemCount: 7}, nil
	}

	var first domain.DashboardStats
	require.NoError(t, cache.GetOrSet(ctx, "dash:summary", &first, fetch, time.Minute))
	assert.Equal(t, 7, first.ItemCount)
	assert.Equal(t, 1, fetchCount)

	var second domain.DashboardStats
	require.NoError(t, cache.GetOrSet(ctx, "dash:summary", &second, fetch, time.Minute))
	assert.Equal(t, 7, second.ItemCount)
	assert.Equal(t, 1, fetchCount)
}

func TestCache_GetOrSet_FetchError(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, 5*time.Minute, helpers.TestLogger())

	boom := errors.New("backend down")
	var dest string
	err := cache.GetOrSet(ctx, "k", &dest, func() (interface{}, error) { return nil, boom }, time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestCache_GetOrSet_RedisDown(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, 5*time.Minute, helpers.TestLogger())
	tr.Server.Close()

	var dest string
	err := cache.GetOrSet(ctx, "k", &dest, func() (interface{}, error) { return "fresh", nil }, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fresh", dest)
	assert.Error(t, cache.Ping(ctx))
}

func TestCache_BuildKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   redis_a.CacheKeyPrefix
		parts    []string
		expected string
	}{
		{
			name:     "stock_key",
			prefix:   redis_a.PrefixStock,
			parts:    []string{"BOLT-1", "NUT-2"},
			expected: "stock:BOLT-1:NUT-2",
		},
		{
			name:     "dashboard_key",
			prefix:   redis_a.PrefixDashboard,
			parts:    []string{"summary"},
			expected: "dash:summary",
		},
		{
			name:     "no_parts",
			prefix:   redis_a.PrefixStock,
			parts:    []string{},
			expected: "stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redis_a.BuildKey(tt.prefix, tt.parts...))
		})
	}

	assert.Equal(t, "dash:main", redis_a.DashboardKey())
}
