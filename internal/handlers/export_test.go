// internal/handlers/export_test.go
package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/internal/handlers"
	"github.com/ammerola/stockscan/test/helpers"
	"github.com/ammerola/stockscan/test/mocks"
)

type fakeExportStore struct {
	name   string
	data   []byte
	putErr error
}

func (s *fakeExportStore) PutExport(_ context.Context, name string, data []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.name = name
	s.data = data
	return "exports/2026/03/14/" + name, nil
}

func (s *fakeExportStore) GetPresignedURL(_ context.Context, key string, duration time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?expires=" + duration.String(), nil
}

func newExportHandler(t *testing.T, store handlers.ExportStore) (*handlers.ExportHandler, *mocks.MockDocumentClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDocumentClient(ctrl)
	records := services.NewRecordService(client, mocks.NewMockSession(ctrl), mocks.NewMockFileUploader(ctrl), helpers.TestLogger())
	exporter := workbook.NewExcelExporter(0, helpers.TestLogger())
	return handlers.NewExportHandler(records, exporter, store, helpers.TestLogger()), client
}

func TestExportHandler_ExportList(t *testing.T) {
	t.Run("streams_workbook", func(t *testing.T) {
		h, client := newExportHandler(t, nil)

		client.EXPECT().
			List(gomock.Any(), domain.DocTypeItem, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, q domain.Query) ([]domain.Record, error) {
				assert.Equal(t, []domain.Filter{domain.Eq("item_group", "Hardware")}, q.Filters)
				assert.Len(t, q.OrFilters, 2)
				assert.Equal(t, 0, q.Offset)
				return helpers.CreateTestRecords(3), nil
			})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/export/item?search=bolt&item_group=Hardware", nil)
		w := serve("GET /api/v1/export/{doctype}", h.ExportList, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
		assert.Equal(t, "3", w.Header().Get("X-Export-Rows"))
		assert.Equal(t, "false", w.Header().Get("X-Export-Truncated"))

		file, err := xlsx.OpenBinary(w.Body.Bytes())
		require.NoError(t, err)
		require.Len(t, file.Sheets, 1)
		assert.Equal(t, 4, file.Sheets[0].MaxRow)
	})

	t.Run("unknown_doctype", func(t *testing.T) {
		h, _ := newExportHandler(t, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/export/supplier", nil)
		w := serve("GET /api/v1/export/{doctype}", h.ExportList, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("backend_unreachable", func(t *testing.T) {
		h, client := newExportHandler(t, nil)
		client.EXPECT().
			List(gomock.Any(), domain.DocTypeUOM, gomock.Any()).
			Return(nil, domain.ErrCannotConnect)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/export/uom", nil)
		w := serve("GET /api/v1/export/{doctype}", h.ExportList, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("store_returns_link", func(t *testing.T) {
		store := &fakeExportStore{}
		h, client := newExportHandler(t, store)
		client.EXPECT().
			List(gomock.Any(), domain.DocTypeWarehouse, gomock.Any()).
			Return(helpers.CreateTestRecords(2), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/export/warehouse?store=true", nil)
		w := serve("GET /api/v1/export/{doctype}", h.ExportList, req)

		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "exports/2026/03/14/"+store.name, body["key"])
		assert.Contains(t, body["url"], "expires=1h0m0s")
		assert.Equal(t, float64(2), body["rows"])
		assert.NotEmpty(t, store.data)
	})

	t.Run("store_failure", func(t *testing.T) {
		h, client := newExportHandler(t, &fakeExportStore{putErr: errors.New("access denied")})
		client.EXPECT().
			List(gomock.Any(), domain.DocTypeWarehouse, gomock.Any()).
			Return(helpers.CreateTestRecords(1), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/export/warehouse?store=true", nil)
		w := serve("GET /api/v1/export/{doctype}", h.ExportList, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("store_not_configured", func(t *testing.T) {
		h, _ := newExportHandler(t, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/export/item?store=true", nil)
		w := serve("GET /api/v1/export/{doctype}", h.ExportList, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
