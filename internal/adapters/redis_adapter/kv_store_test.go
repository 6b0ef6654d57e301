package redis_a_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/stockscan/internal/adapters/redis_adapter"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/test/helpers"
)

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	store := redis_a.NewKVStore(tr.Client, "stockscan", helpers.TestLogger())

	_, err := store.Get(ctx, domain.DefaultCartKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, domain.DefaultCartKey, `[]`))
	assert.True(t, tr.Server.Exists("stockscan:scannedItems"))
	assert.Zero(t, tr.Server.TTL("stockscan:scannedItems"))

	got, err := store.Get(ctx, domain.DefaultCartKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)

	require.NoError(t, store.Delete(ctx, domain.DefaultCartKey))
	assert.False(t, tr.Server.Exists("stockscan:scannedItems"))
}

func TestKVStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	store := redis_a.NewKVStore(tr.Client, "", helpers.TestLogger())
	tr.Server.Close()

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrKeyNotFound)
	assert.Error(t, store.Set(ctx, "k", "v"))
	assert.Error(t, store.Health(ctx))
}
