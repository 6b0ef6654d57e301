// internal/core/domain/stock.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseQty is the stock of one item in one warehouse.
type WarehouseQty struct {
	Warehouse string          `json:"warehouse"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ItemStock is the summed stock of one item across its bins.
type ItemStock struct {
	ItemCode   string          `json:"item_code"`
	ItemName   string          `json:"item_name,omitempty"`
	TotalQty   decimal.Decimal `json:"total_qty"`
	Warehouses []WarehouseQty  `json:"warehouse_qty"`
}

// SummarizeBins folds Bin records of one item into an ItemStock,
// keeping warehouses in first-seen order.
func SummarizeBins(itemCode string, bins []Record) ItemStock {
	s := ItemStock{ItemCode: itemCode, TotalQty: decimal.Zero, Warehouses: []WarehouseQty{}}
	index := make(map[string]int)
	for _, b := range bins {
		if s.ItemName == "" {
			s.ItemName = b.String("item_name")
		}
		qty := b.Decimal("actual_qty")
		s.TotalQty = s.TotalQty.Add(qty)
		wh := b.String("warehouse")
		if i, ok := index[wh]; ok {
			s.Warehouses[i].Quantity = s.Warehouses[i].Quantity.Add(qty)
			continue
		}
		index[wh] = len(s.Warehouses)
		s.Warehouses = append(s.Warehouses, WarehouseQty{Warehouse: wh, Quantity: qty})
	}
	return s
}

// DashboardStats is the home screen summary. Failures names each
// sub-fetch that fell back to its zero value.
type DashboardStats struct {
	ItemCount      int               `json:"item_count"`
	ItemGroupCount int               `json:"item_group_count"`
	UOMCount       int               `json:"uom_count"`
	WarehouseCount int               `json:"warehouse_count"`
	LowStockItems  []Record          `json:"low_stock_items"`
	MonthlyEntries int               `json:"monthly_entries"`
	EntriesByType  map[string]int    `json:"entries_by_type"`
	RecentEntries  []Record          `json:"recent_entries"`
	Failures       map[string]string `json:"failures,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// MonthStart returns midnight on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
