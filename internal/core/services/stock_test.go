package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/test/helpers"
	"github.com/ammerola/stockscan/test/mocks"
)

func TestStockService_ItemStock(t *testing.T) {
	ctx := context.Background()

	bins := map[string][]domain.Record{
		"A": {
			{"item_code": "A", "item_name": "Alpha", "warehouse": "Stores - X", "actual_qty": 2.5},
			{"item_code": "A", "item_name": "Alpha", "warehouse": "Dock - X", "actual_qty": 4.0},
		},
		"B": {},
	}

	t.Run("sums per item in request order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockDocumentClient(ctrl)
		client.EXPECT().
			List(gomock.Any(), domain.DocTypeBin, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, q domain.Query) ([]domain.Record, error) {
				code := q.Filters[0].Value.(string)
				return bins[code], nil
			}).
			Times(2)

		out, err := services.NewStockService(client, nil, helpers.TestLogger()).ItemStock(ctx, []string{"A", "B"})
		require.NoError(t, err)
		require.Len(t, out, 2)

		assert.Equal(t, "A", out[0].ItemCode)
		assert.Equal(t, "Alpha", out[0].ItemName)
		assert.True(t, decimal.NewFromFloat(6.5).Equal(out[0].TotalQty))
		require.Len(t, out[0].Warehouses, 2)
		assert.Equal(t, "Stores - X", out[0].Warehouses[0].Warehouse)

		assert.Equal(t, "B", out[1].ItemCode)
		assert.True(t, out[1].TotalQty.IsZero())
		assert.Empty(t, out[1].Warehouses)
	})

	t.Run("any failure fails the call", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockDocumentClient(ctrl)
		client.EXPECT().
			List(gomock.Any(), domain.DocTypeBin, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, q domain.Query) ([]domain.Record, error) {
				if q.Filters[0].Value == "B" {
					return nil, domain.ErrNetwork
				}
				return bins["A"], nil
			}).
			AnyTimes()

		_, err := services.NewStockService(client, nil, helpers.TestLogger()).ItemStock(ctx, []string{"A", "B"})
		assert.ErrorIs(t, err, domain.ErrNetwork)
	})
}

func TestStockService_BinFetcher(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDocumentClient(ctrl)

	client.EXPECT().
		List(gomock.Any(), domain.DocTypeBin, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, q domain.Query) ([]domain.Record, error) {
			assert.Equal(t, "creation desc", q.Sort.String())
			assert.Equal(t, []domain.Filter{domain.Eq("item_code", "A")}, q.Filters)
			return []domain.Record{{"warehouse": "Stores - X"}}, nil
		})

	f := services.NewStockService(client, nil, helpers.TestLogger()).BinFetcher("A")
	require.NoError(t, f.Refresh(context.Background()))
	assert.Len(t, f.State().Items, 1)
}
