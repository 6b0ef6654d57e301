package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/test/mocks"
)

func newTestLoop(t *testing.T) (*scanLoop, *mocks.MockCartService, *mocks.MockSubmissionService, *bytes.Buffer, *[]time.Duration) {
	t.Helper()
	ctrl := gomock.NewController(t)
	cart := mocks.NewMockCartService(ctrl)
	submitter := mocks.NewMockSubmissionService(ctrl)
	var out bytes.Buffer
	var slept []time.Duration
	loop := &scanLoop{
		cart:      cart,
		submitter: submitter,
		out:       &out,
		sleep:     func(d time.Duration) { slept = append(slept, d) },
	}
	return loop, cart, submitter, &out, &slept
}

func TestScanLoop_Scans(t *testing.T) {
	loop, cart, _, out, slept := newTestLoop(t)
	ctx := context.Background()

	gomock.InOrder(
		cart.EXPECT().Scan(gomock.Any(), "BOLT-1").Return(&domain.ScanResult{
			Code:    "BOLT-1",
			Outcome: domain.ScanAdded,
			Item:    &domain.ScannedItem{ItemCode: "BOLT-1", Quantity: 1},
		}, nil),
		cart.EXPECT().Scan(gomock.Any(), "BOLT-1").Return(&domain.ScanResult{
			Code:    "BOLT-1",
			Outcome: domain.ScanSuppressed,
		}, nil),
		cart.EXPECT().Scan(gomock.Any(), "NOPE").Return(&domain.ScanResult{
			Code:        "NOPE",
			Outcome:     domain.ScanNotFound,
			ResumeAfter: time.Second,
		}, nil),
		cart.EXPECT().Scan(gomock.Any(), "NUT-2").Return(&domain.ScanResult{
			Code:        "NUT-2",
			Outcome:     domain.ScanFailed,
			ResumeAfter: time.Second,
		}, domain.ErrCannotConnect),
	)

	err := loop.run(ctx, strings.NewReader("BOLT-1\n\nBOLT-1\n  NOPE  \nNUT-2\n"))
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"added BOLT-1 x1",
		"ignored repeat: BOLT-1",
		"not found: NOPE",
		"error: Cannot connect to server. Please check your internet connection and server URL.",
		"",
	}, "\n"), out.String())
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *slept)
}

func TestScanLoop_CartCommands(t *testing.T) {
	loop, cart, _, out, _ := newTestLoop(t)
	ctx := context.Background()

	cart.EXPECT().SetQuantity(gomock.Any(), "BOLT-1", 1).
		Return(&domain.ScannedItem{ItemCode: "BOLT-1", Quantity: 1}, nil)
	cart.EXPECT().SetQuantity(gomock.Any(), "BOLT-1", 12).
		Return(&domain.ScannedItem{ItemCode: "BOLT-1", Quantity: 12}, nil)
	cart.EXPECT().Items(gomock.Any()).Return([]domain.ScannedItem{
		{ItemCode: "BOLT-1", ItemName: "Bolt", Quantity: 12, UOM: "Nos"},
	})
	cart.EXPECT().Remove(gomock.Any(), "GONE").Return(domain.ErrNotFound)
	cart.EXPECT().Clear(gomock.Any()).Return(nil)
	cart.EXPECT().Items(gomock.Any()).Return(nil)

	input := "qty BOLT-1 abc\nqty BOLT-1 12\ncart\nrm GONE\nqty BOLT-1\nclear\ncart\n"
	require.NoError(t, loop.run(ctx, strings.NewReader(input)))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "BOLT-1 x1", lines[0])
	assert.Equal(t, "BOLT-1 x12", lines[1])
	assert.Contains(t, lines[2], "BOLT-1")
	assert.Contains(t, lines[2], "12 Nos")
	assert.Equal(t, "error: Not found.", lines[3])
	assert.Equal(t, "error: "+errScanUsage.Error(), lines[4])
	assert.Equal(t, "cart cleared", lines[5])
	assert.Equal(t, "cart is empty", lines[6])
}

func TestScanLoop_Submit(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *ports.SubmitRequest
		wantOut string
	}{
		{
			name:    "transfer",
			line:    "submit transfer Stores Shop",
			want:    &ports.SubmitRequest{Type: domain.TransactionTransfer, SourceWarehouse: "Stores", TargetWarehouse: "Shop"},
			wantOut: "submitted MAT-STE-0001\n",
		},
		{
			name:    "issue_takes_source",
			line:    "submit issue Stores",
			want:    &ports.SubmitRequest{Type: domain.TransactionIssue, SourceWarehouse: "Stores"},
			wantOut: "submitted MAT-STE-0001\n",
		},
		{
			name:    "missing_type",
			line:    "submit",
			wantOut: "error: " + errScanUsage.Error() + "\n",
		},
		{
			name:    "receipt_label",
			line:    "submit receipt Shop",
			want:    &ports.SubmitRequest{Type: domain.TransactionReceipt, TargetWarehouse: "Shop"},
			wantOut: "submitted MAT-STE-0001\n",
		},
		{
			name:    "unknown_type",
			line:    "submit adjust",
			wantOut: "error: validation failed: type unknown transaction type \"adjust\"\n",
		},
		{
			name:    "too_many_warehouses",
			line:    "submit issue A B",
			wantOut: "error: " + errScanUsage.Error() + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop, _, submitter, out, _ := newTestLoop(t)
			if tt.want != nil {
				submitter.EXPECT().Submit(gomock.Any(), *tt.want).
					Return(domain.Record{"name": "MAT-STE-0001"}, nil)
			}

			require.NoError(t, loop.run(context.Background(), strings.NewReader(tt.line+"\n")))
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

func TestScanLoop_StopsOnCancel(t *testing.T) {
	loop, _, _, out, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.run(ctx, strings.NewReader("BOLT-1\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
