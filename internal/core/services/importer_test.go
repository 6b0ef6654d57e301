package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockscan/internal/adapters/frappe"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/test/helpers"
	"github.com/ammerola/stockscan/test/mocks"
)

func importRows(codes ...string) []domain.ItemInput {
	out := make([]domain.ItemInput, 0, len(codes))
	for _, c := range codes {
		out = append(out, domain.ItemInput{ItemCode: c, ItemName: c, ItemGroup: "Hardware"})
	}
	return out
}

func TestImportItems(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected_rows_are_skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		records := mocks.NewMockRecordService(ctrl)

		gomock.InOrder(
			records.EXPECT().CreateItem(gomock.Any(), importRows("A")[0], gomock.Nil()).
				Return(domain.Record{"name": "A"}, nil),
			records.EXPECT().CreateItem(gomock.Any(), importRows("B")[0], gomock.Nil()).
				Return(nil, &frappe.HTTPError{StatusCode: 417, Message: "Item Code B already exists"}),
			records.EXPECT().CreateItem(gomock.Any(), importRows("C")[0], gomock.Nil()).
				Return(domain.Record{}, nil),
		)

		summary, err := services.ImportItems(ctx, records, importRows("A", "B", "C"), helpers.TestLogger())
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, []string{"A", "C"}, summary.Created)
		require.Len(t, summary.Failed, 1)
		assert.Equal(t, services.ImportFailure{ItemCode: "B", Error: "Item Code B already exists"}, summary.Failed[0])
		assert.False(t, summary.Aborted)
	})

	t.Run("auth_failure_aborts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		records := mocks.NewMockRecordService(ctrl)

		records.EXPECT().CreateItem(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(domain.Record{"name": "A"}, nil)
		records.EXPECT().CreateItem(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(nil, &frappe.HTTPError{StatusCode: 401})

		summary, err := services.ImportItems(ctx, records, importRows("A", "B", "C"), helpers.TestLogger())
		require.ErrorIs(t, err, domain.ErrAuthExpired)
		assert.True(t, summary.Aborted)
		assert.Equal(t, []string{"A"}, summary.Created)
		assert.Empty(t, summary.Failed)
	})

	t.Run("cancelled_context_stops_before_sending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		records := mocks.NewMockRecordService(ctrl)
		records.EXPECT().CreateItem(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		summary, err := services.ImportItems(cctx, records, importRows("A"), helpers.TestLogger())
		require.ErrorIs(t, err, context.Canceled)
		assert.True(t, summary.Aborted)
	})

	t.Run("empty_input", func(t *testing.T) {
		summary, err := services.ImportItems(ctx, mocks.NewMockRecordService(gomock.NewController(t)), nil, helpers.TestLogger())
		require.NoError(t, err)
		assert.Zero(t, summary.Total)
		assert.Empty(t, summary.Created)
	})
}
