// internal/core/ports/services.go
package ports

import (
	"context"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=../../../test/mocks/services_mock.go -package=mocks

// CartService is the scan cart as seen by the transport layer.
type CartService interface {
	Items(ctx context.Context) []domain.ScannedItem
	Scan(ctx context.Context, code string) (*domain.ScanResult, error)
	SetQuantity(ctx context.Context, code string, qty int) (*domain.ScannedItem, error)
	Remove(ctx context.Context, code string) error
	Clear(ctx context.Context) error
	// Deduct removes submitted quantities, keeping lines added since.
	Deduct(ctx context.Context, submitted []domain.ScannedItem) error
}

// SubmissionService turns the cart into a stock entry.
type SubmissionService interface {
	Submit(ctx context.Context, req SubmitRequest) (domain.Record, error)
}

// RecordService covers list, detail and create-form operations.
type RecordService interface {
	List(ctx context.Context, doctype string, params ListParams) (*domain.ListPage, error)
	Get(ctx context.Context, doctype, name string) (domain.Record, error)
	Update(ctx context.Context, doctype, name string, fields map[string]any) (domain.Record, error)
	CreateItem(ctx context.Context, in domain.ItemInput, image *UploadRequest) (domain.Record, error)
	CreateItemGroup(ctx context.Context, in domain.ItemGroupInput) (domain.Record, error)
	CreateUOM(ctx context.Context, in domain.UOMInput) (domain.Record, error)
	CreateWarehouse(ctx context.Context, in domain.WarehouseInput) (domain.Record, error)
	Options(ctx context.Context, kind string) ([]domain.Record, error)
}

// DashboardService loads the home screen summary.
type DashboardService interface {
	Load(ctx context.Context) *domain.DashboardStats
}

// StockService summarizes bins per item.
type StockService interface {
	ItemStock(ctx context.Context, codes []string) ([]domain.ItemStock, error)
}

// ListParams holds parameters for one stateless list page.
type ListParams struct {
	Search  string
	Filters []domain.Filter
	Page    int
}

// SubmitRequest describes a stock entry built from the cart.
type SubmitRequest struct {
	Type            domain.TransactionType
	Company         string
	NamingSeries    string
	SourceWarehouse string
	TargetWarehouse string
	SourceRack      string
	TargetRack      string
	// PostingTime defaults to now when zero.
	PostingTime time.Time
	// Overrides are keyed by item code.
	Overrides map[string]LineOverride
}

// LineOverride replaces the defaults for a single line.
type LineOverride struct {
	SourceWarehouse string `json:"s_warehouse,omitempty"`
	TargetWarehouse string `json:"t_warehouse,omitempty"`
	SourceRack      string `json:"custom_source_rack,omitempty"`
	TargetRack      string `json:"custom_target_rack,omitempty"`
}
