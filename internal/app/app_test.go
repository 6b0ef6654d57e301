package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockscan/internal/app"
	"github.com/ammerola/stockscan/internal/pkg/config"
	"github.com/ammerola/stockscan/test/helpers"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Name: "stockscan", Version: "test", Environment: "test"},
		Backend: config.BackendConfig{
			BaseURL:     baseURL,
			ClientID:    "client-1",
			Scope:       "all openid",
			PingTimeout: time.Second,
		},
		Upload:    config.UploadConfig{Timeout: time.Second, MaxSizeMB: 1, Folder: "Home"},
		Scanner:   config.ScannerConfig{Cooldown: 2 * time.Second, RescanDelay: time.Second, CartKey: "scannedItems"},
		Storage:   config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "state.db")},
		Dashboard: config.DashboardConfig{LowStockMethod: "get_low_stock_items", CacheTTL: time.Minute},
	}
}

func tokenBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/method/frappe.integrations.oauth2.get_token" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"acc-1","refresh_token":"ref-1","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	srv := tokenBackend(t)
	cfg := testConfig(t, srv.URL)

	a, err := app.New(ctx, cfg, helpers.TestLogger(), app.Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Cache)
	assert.Nil(t, a.Exports)
	require.NoError(t, a.StoreHealth.Health(ctx))
	assert.Equal(t, srv.URL, a.Client.BaseURL())
	assert.Empty(t, a.Cart.Items(ctx))

	require.NoError(t, a.Store.Set(ctx, "probe", "1"))
	got, err := a.Store.Get(ctx, "probe")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestNew_RedisStore(t *testing.T) {
	ctx := context.Background()
	tr := helpers.SetupTestRedis(t)
	cfg := testConfig(t, "http://erp.local")
	cfg.Storage.Driver = "redis"
	cfg.Storage.KeyPrefix = "stockscan"
	cfg.Redis.Host, cfg.Redis.Port = tr.Server.Host(), tr.Server.Port()
	cfg.Redis.TTL = time.Minute

	a, err := app.New(ctx, cfg, helpers.TestLogger(), app.Options{})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	require.NotNil(t, a.Cache)
	require.NoError(t, a.StoreHealth.Health(ctx))

	require.NoError(t, a.Store.Set(ctx, "probe", "1"))
	assert.True(t, tr.Server.Exists("stockscan:probe"))
}

func TestNew_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown_driver", func(t *testing.T) {
		cfg := testConfig(t, "http://erp.local")
		cfg.Storage.Driver = "etcd"

		_, err := app.New(ctx, cfg, helpers.TestLogger(), app.Options{})
		assert.ErrorContains(t, err, `unknown storage driver "etcd"`)
	})

	t.Run("redis_unreachable", func(t *testing.T) {
		cfg := testConfig(t, "http://erp.local")
		cfg.Redis.Host, cfg.Redis.Port = "127.0.0.1", "1"
		cfg.Redis.DialTimeout = 200 * time.Millisecond

		_, err := app.New(ctx, cfg, helpers.TestLogger(), app.Options{Redis: true})
		assert.ErrorContains(t, err, "failed to connect to Redis")
	})

	t.Run("missing_client_id", func(t *testing.T) {
		cfg := testConfig(t, "http://erp.local")
		cfg.Backend.ClientID = ""

		_, err := app.New(ctx, cfg, helpers.TestLogger(), app.Options{})
		assert.ErrorContains(t, err, "failed to initialize session")
	})
}

func TestApp_SignIn(t *testing.T) {
	ctx := context.Background()
	srv := tokenBackend(t)

	t.Run("logs_in_with_configured_credentials", func(t *testing.T) {
		cfg := testConfig(t, srv.URL)
		cfg.Backend.Username, cfg.Backend.Password = "clerk", "secret"
		a, err := app.New(ctx, cfg, helpers.TestLogger(), app.Options{})
		require.NoError(t, err)
		defer a.Close()

		require.NoError(t, a.SignIn(ctx))
		assert.Equal(t, "acc-1", a.Session.Current(ctx).AccessToken)

		stored, err := a.Store.Get(ctx, "session:tokens")
		require.NoError(t, err)
		assert.Contains(t, stored, "ref-1")
	})

	t.Run("without_credentials_is_a_no_op", func(t *testing.T) {
		a, err := app.New(ctx, testConfig(t, srv.URL), helpers.TestLogger(), app.Options{})
		require.NoError(t, err)
		defer a.Close()

		require.NoError(t, a.SignIn(ctx))
		assert.Empty(t, a.Session.Current(ctx).AccessToken)
	})
}
