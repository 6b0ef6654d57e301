// internal/core/domain/scan.go
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scanner timing defaults.
const (
	DefaultScanCooldown = 2 * time.Second
	DefaultRescanDelay  = time.Second
	DefaultCartKey      = "scannedItems"
)

// ItemLookupFields are fetched when resolving a scanned code.
var ItemLookupFields = []string{"name", "item_code", "item_name", "stock_uom", "item_group"}

// ScannedItem is one cart line, keyed by ItemCode.
type ScannedItem struct {
	ItemCode  string `json:"item_code"`
	ItemName  string `json:"item_name"`
	ItemGroup string `json:"item_group"`
	UOM       string `json:"uom"`
	Quantity  int    `json:"quantity"`
}

// NewScannedItem builds a cart line from a resolved Item record.
func NewScannedItem(r Record) ScannedItem {
	return ScannedItem{
		ItemCode:  r.String("item_code"),
		ItemName:  r.String("item_name"),
		ItemGroup: r.String("item_group"),
		UOM:       r.String("stock_uom"),
		Quantity:  1,
	}
}

// ClampQuantity floors a quantity at 1.
func ClampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ParseQuantity reads user input. Anything that is not a positive
// integer becomes 1.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return ClampQuantity(n)
}

// EncodeCart serializes the ordered cart snapshot.
func EncodeCart(items []ScannedItem) (string, error) {
	if items == nil {
		items = []ScannedItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode cart: %w", err)
	}
	return string(b), nil
}

// DecodeCart parses a snapshot. Entries without a code are dropped and
// quantities are floored, so a hand-edited snapshot cannot break the
// cart invariants.
func DecodeCart(s string) ([]ScannedItem, error) {
	var items []ScannedItem
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	out := make([]ScannedItem, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if it.ItemCode == "" {
			continue
		}
		it.Quantity = ClampQuantity(it.Quantity)
		if i, ok := seen[it.ItemCode]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		seen[it.ItemCode] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// ScanOutcome describes what a scan did to the cart.
type ScanOutcome string

// Scan outcomes
const (
	ScanAdded       ScanOutcome = "added"
	ScanIncremented ScanOutcome = "incremented"
	ScanSuppressed  ScanOutcome = "suppressed"
	ScanNotFound    ScanOutcome = "not_found"
	ScanFailed      ScanOutcome = "failed"
)

// ScanResult is returned for every scan attempt. ResumeAfter is set
// when the scanner should pause before accepting the next read.
type ScanResult struct {
	Code        string        `json:"code"`
	Outcome     ScanOutcome   `json:"outcome"`
	Item        *ScannedItem  `json:"item,omitempty"`
	ResumeAfter time.Duration `json:"resume_after,omitempty"`
}
