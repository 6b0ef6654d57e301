// internal/core/domain/stock_entry.go
package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType selects which warehouses a stock entry line needs.
type TransactionType string

// Transaction types
const (
	TransactionIssue    TransactionType = "issue"
	TransactionReceipt  TransactionType = "receipt"
	TransactionTransfer TransactionType = "transfer"
)

// DefaultNamingSeries is the stock entry series used by new entries.
const DefaultNamingSeries = "MAT-STE-.YYYY.-"

// ParseTransactionType accepts the enum value or the backend label.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "issue", "material issue":
		return TransactionIssue, nil
	case "receipt", "material receipt":
		return TransactionReceipt, nil
	case "transfer", "material transfer":
		return TransactionTransfer, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// EntryType returns the backend stock_entry_type label.
func (t TransactionType) EntryType() string {
	switch t {
	case TransactionIssue:
		return "Material Issue"
	case TransactionReceipt:
		return "Material Receipt"
	case TransactionTransfer:
		return "Material Transfer"
	}
	return ""
}

// NeedsSource reports whether lines must carry a source warehouse.
func (t TransactionType) NeedsSource() bool {
	return t == TransactionIssue || t == TransactionTransfer
}

// NeedsTarget reports whether lines must carry a target warehouse.
func (t TransactionType) NeedsTarget() bool {
	return t == TransactionReceipt || t == TransactionTransfer
}

// StockEntryLine is one line of a stock entry.
type StockEntryLine struct {
	ItemCode        string `json:"item_code"`
	Quantity        int    `json:"qty"`
	UOM             string `json:"uom,omitempty"`
	SourceWarehouse string `json:"s_warehouse,omitempty"`
	TargetWarehouse string `json:"t_warehouse,omitempty"`
	SourceRack      string `json:"custom_source_rack,omitempty"`
	TargetRack      string `json:"custom_target_rack,omitempty"`
}

// StockEntry is a stock movement ready to be created.
type StockEntry struct {
	Type         TransactionType
	NamingSeries string
	Company      string
	PostingTime  time.Time
	// SetPostingTime marks a posting time chosen by the user rather than "now".
	SetPostingTime bool
	Lines          []StockEntryLine
}

// Validate checks every line against the warehouse requirements of the type.
func (e *StockEntry) Validate() error {
	ve := NewValidationError()
	if e.Type.EntryType() == "" {
		ve.Add("stock_entry_type", fmt.Sprintf("unknown transaction type %q", e.Type))
		return ve
	}
	if len(e.Lines) == 0 {
		ve.Add("items", "at least one item is required")
	}
	for i, l := range e.Lines {
		prefix := fmt.Sprintf("items[%d]", i)
		if l.ItemCode == "" {
			ve.Add(prefix+".item_code", "is required")
		}
		if l.Quantity < 1 {
			ve.Add(prefix+".qty", "must be at least 1")
		}
		if e.Type.NeedsSource() && l.SourceWarehouse == "" {
			ve.Add(prefix+".s_warehouse", fmt.Sprintf("is required for %s (%s)", e.Type.EntryType(), l.ItemCode))
		}
		if e.Type.NeedsTarget() && l.TargetWarehouse == "" {
			ve.Add(prefix+".t_warehouse", fmt.Sprintf("is required for %s (%s)", e.Type.EntryType(), l.ItemCode))
		}
	}
	return ve.OrNil()
}

// Fields renders the entry as a create-document payload.
func (e *StockEntry) Fields() map[string]any {
	series := e.NamingSeries
	if series == "" {
		series = DefaultNamingSeries
	}
	items := make([]map[string]any, 0, len(e.Lines))
	for _, l := range e.Lines {
		item := map[string]any{
			"item_code": l.ItemCode,
			"qty":       l.Quantity,
		}
		if l.UOM != "" {
			item["uom"] = l.UOM
		}
		if e.Type.NeedsSource() {
			item["s_warehouse"] = l.SourceWarehouse
			if l.SourceRack != "" {
				item["custom_source_rack"] = l.SourceRack
			}
		}
		if e.Type.NeedsTarget() {
			item["t_warehouse"] = l.TargetWarehouse
			if l.TargetRack != "" {
				item["custom_target_rack"] = l.TargetRack
			}
		}
		items = append(items, item)
	}
	fields := map[string]any{
		"naming_series":    series,
		"stock_entry_type": e.Type.EntryType(),
		"posting_date":     e.PostingTime.Format("2006-01-02"),
		"posting_time":     e.PostingTime.Format("15:04:05"),
		"set_posting_time": boolInt(e.SetPostingTime),
		"items":            items,
	}
	if e.Company != "" {
		fields["company"] = e.Company
	}
	return fields
}
