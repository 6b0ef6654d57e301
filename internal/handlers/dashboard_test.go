package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/ammerola/stockscan/internal/adapters/redis_adapter"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/handlers"
	"github.com/ammerola/stockscan/test/helpers"
	"github.com/ammerola/stockscan/test/mocks"
)

func TestDashboardHandler_GetDashboard(t *testing.T) {
	ctrl := gomock.NewController(t)
	dashboard := mocks.NewMockDashboardService(ctrl)
	stock := mocks.NewMockStockService(ctrl)
	tr := helpers.SetupTestRedis(t)
	cache := redis_a.NewCache(tr.Client, time.Minute, helpers.TestLogger())

	h := handlers.NewDashboardHandler(dashboard, stock, cache, 5*time.Minute, helpers.TestLogger())

	stats := &domain.DashboardStats{
		ItemCount:      42,
		WarehouseCount: 3,
		EntriesByType:  map[string]int{"Material Receipt": 2},
		Failures:       map[string]string{"uom_count": "Network error. Please check your connection."},
	}

	t.Run("first_request_loads_and_caches", func(t *testing.T) {
		dashboard.EXPECT().Load(gomock.Any()).Return(stats).Times(1)

		w := serve("GET /api/v1/dashboard", h.GetDashboard, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(42), body["item_count"])
		assert.Contains(t, body["failures"], "uom_count")
		assert.True(t, tr.Server.Exists(redis_a.DashboardKey()))
		assert.Equal(t, 5*time.Minute, tr.Server.TTL(redis_a.DashboardKey()))
	})

	t.Run("second_request_served_from_cache", func(t *testing.T) {
		w := serve("GET /api/v1/dashboard", h.GetDashboard, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(42), decodeBody(t, w)["item_count"])
	})

	t.Run("refresh_bypasses_cache", func(t *testing.T) {
		fresh := &domain.DashboardStats{ItemCount: 43}
		dashboard.EXPECT().Load(gomock.Any()).Return(fresh).Times(1)

		w := serve("GET /api/v1/dashboard", h.GetDashboard, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?refresh=true", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(43), decodeBody(t, w)["item_count"])

		var cached domain.DashboardStats
		require.NoError(t, cache.Get(context.Background(), redis_a.DashboardKey(), &cached))
		assert.Equal(t, 43, cached.ItemCount)
	})

	t.Run("redis_down_still_loads", func(t *testing.T) {
		tr.Server.SetError("ERR injected failure")
		defer tr.Server.SetError("")

		dashboard.EXPECT().Load(gomock.Any()).Return(stats).Times(1)

		w := serve("GET /api/v1/dashboard", h.GetDashboard, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(42), decodeBody(t, w)["item_count"])
	})
}

func TestDashboardHandler_GetStock(t *testing.T) {
	t.Run("codes_are_deduped_and_sorted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		stock := mocks.NewMockStockService(ctrl)
		cache := mocks.NewMockCacheRepository(ctrl)
		h := handlers.NewDashboardHandler(mocks.NewMockDashboardService(ctrl), stock, cache, 0, helpers.TestLogger())

		result := []domain.ItemStock{
			{ItemCode: "A", TotalQty: decimal.NewFromInt(5), Warehouses: []domain.WarehouseQty{}},
			{ItemCode: "B", TotalQty: decimal.Zero, Warehouses: []domain.WarehouseQty{}},
		}
		stock.EXPECT().ItemStock(gomock.Any(), []string{"A", "B"}).Return(result, nil)
		cache.EXPECT().
			GetOrSet(gomock.Any(), "stock:A:B", gomock.Any(), gomock.Any(), time.Minute).
			DoAndReturn(func(_ context.Context, _ string, dest interface{}, fetch func() (interface{}, error), _ time.Duration) error {
				v, err := fetch()
				if err != nil {
					return err
				}
				data, _ := json.Marshal(v)
				return json.Unmarshal(data, dest)
			})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock?item_code=B,A&item_code=%20A%20", nil)
		w := serve("GET /api/v1/stock", h.GetStock, req)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].([]interface{})
		require.Len(t, data, 2)
		assert.Equal(t, "A", data[0].(map[string]interface{})["item_code"])
		assert.Equal(t, "5", data[0].(map[string]interface{})["total_qty"])
	})

	t.Run("missing_codes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		h := handlers.NewDashboardHandler(mocks.NewMockDashboardService(ctrl), mocks.NewMockStockService(ctrl),
			mocks.NewMockCacheRepository(ctrl), 0, helpers.TestLogger())

		w := serve("GET /api/v1/stock", h.GetStock, httptest.NewRequest(http.MethodGet, "/api/v1/stock?item_code=,", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "item_code is required", decodeBody(t, w)["error"])
	})

	t.Run("backend_failure_is_mapped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		stock := mocks.NewMockStockService(ctrl)
		tr := helpers.SetupTestRedis(t)
		h := handlers.NewDashboardHandler(mocks.NewMockDashboardService(ctrl), stock,
			redis_a.NewCache(tr.Client, time.Minute, helpers.TestLogger()), 0, helpers.TestLogger())

		stock.EXPECT().ItemStock(gomock.Any(), []string{"A"}).Return(nil, domain.ErrAuthExpired)

		w := serve("GET /api/v1/stock", h.GetStock, httptest.NewRequest(http.MethodGet, "/api/v1/stock?item_code=A", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, tr.Server.Exists("stock:A"))
	})

	t.Run("refresh_drops_every_cached_stock_set", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		stock := mocks.NewMockStockService(ctrl)
		tr := helpers.SetupTestRedis(t)
		h := handlers.NewDashboardHandler(mocks.NewMockDashboardService(ctrl), stock,
			redis_a.NewCache(tr.Client, time.Minute, helpers.TestLogger()), 0, helpers.TestLogger())

		require.NoError(t, tr.Server.Set("stock:A", `[{"item_code":"A","total_qty":"1","warehouses":[]}]`))
		require.NoError(t, tr.Server.Set("stock:A:B", `[]`))
		require.NoError(t, tr.Server.Set(redis_a.DashboardKey(), `{}`))

		fresh := []domain.ItemStock{{ItemCode: "A", TotalQty: decimal.NewFromInt(9), Warehouses: []domain.WarehouseQty{}}}
		stock.EXPECT().ItemStock(gomock.Any(), []string{"A"}).Return(fresh, nil).Times(1)

		w := serve("GET /api/v1/stock", h.GetStock, httptest.NewRequest(http.MethodGet, "/api/v1/stock?item_code=A&refresh=true", nil))

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].([]interface{})
		require.Len(t, data, 1)
		assert.Equal(t, "9", data[0].(map[string]interface{})["total_qty"])
		assert.False(t, tr.Server.Exists("stock:A:B"))
		assert.True(t, tr.Server.Exists("stock:A"))
		assert.True(t, tr.Server.Exists(redis_a.DashboardKey()))
	})

	t.Run("refresh_survives_cache_errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		stock := mocks.NewMockStockService(ctrl)
		cache := mocks.NewMockCacheRepository(ctrl)
		h := handlers.NewDashboardHandler(mocks.NewMockDashboardService(ctrl), stock, cache, 0, helpers.TestLogger())

		cache.EXPECT().DeletePattern(gomock.Any(), "stock:*").Return(assert.AnError)
		cache.EXPECT().
			GetOrSet(gomock.Any(), "stock:A", gomock.Any(), gomock.Any(), time.Minute).
			DoAndReturn(func(_ context.Context, _ string, dest interface{}, fetch func() (interface{}, error), _ time.Duration) error {
				v, err := fetch()
				if err != nil {
					return err
				}
				data, _ := json.Marshal(v)
				return json.Unmarshal(data, dest)
			})
		stock.EXPECT().ItemStock(gomock.Any(), []string{"A"}).Return([]domain.ItemStock{}, nil)

		w := serve("GET /api/v1/stock", h.GetStock, httptest.NewRequest(http.MethodGet, "/api/v1/stock?item_code=A&refresh=1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
