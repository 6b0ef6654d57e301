// internal/adapters/workbook/import.go
package workbook

import (
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockscan/internal/core/domain"
)

// RowError reports one spreadsheet row that could not be read.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// itemColumns maps accepted header spellings to item form fields.
var itemColumns = map[string]string{
	"item_code":      "item_code",
	"item code":      "item_code",
	"code":           "item_code",
	"item_name":      "item_name",
	"item name":      "item_name",
	"name":           "item_name",
	"item_group":     "item_group",
	"item group":     "item_group",
	"group":          "item_group",
	"stock_uom":      "stock_uom",
	"stock uom":      "stock_uom",
	"uom":            "stock_uom",
	"description":    "description",
	"barcode":        "custom_barcode",
	"custom_barcode": "custom_barcode",
}

// ReadItems parses the first sheet of an xlsx workbook into item forms.
// The first row names the columns. Blank rows are skipped; rows failing
// validation are reported and left out.
func ReadItems(data []byte) ([]domain.ItemInput, []RowError, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	var (
		items   []domain.ItemInput
		errs    []RowError
		columns map[int]string
		rowIdx  int
	)

	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		rowIdx++
		if columns == nil {
			columns = headerColumns(r)
			return nil
		}

		values := make(map[string]string, len(columns))
		for i, field := range columns {
			if c := r.GetCell(i); c != nil {
				values[field] = strings.TrimSpace(c.String())
			}
		}
		if isBlank(values) {
			return nil
		}

		item := domain.ItemInput{
			ItemCode:    values["item_code"],
			ItemName:    values["item_name"],
			ItemGroup:   values["item_group"],
			StockUOM:    values["stock_uom"],
			Description: values["description"],
			Barcode:     values["custom_barcode"],
		}
		if item.ItemName == "" {
			item.ItemName = item.ItemCode
		}
		if err := item.Validate(); err != nil {
			errs = append(errs, RowError{Row: rowIdx, Err: err.Error()})
			return nil
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to process Excel rows: %w", err)
	}
	if columns == nil {
		return nil, nil, fmt.Errorf("workbook has no header row")
	}
	if !hasField(columns, "item_code") {
		return nil, nil, fmt.Errorf("workbook has no item code column")
	}

	return items, errs, nil
}

func headerColumns(r *xlsx.Row) map[int]string {
	columns := make(map[int]string)
	_ = r.ForEachCell(func(c *xlsx.Cell) error {
		x, _ := c.GetCoordinates()
		name := strings.ToLower(strings.TrimSpace(c.String()))
		if field, ok := itemColumns[name]; ok {
			columns[x] = field
		}
		return nil
	})
	return columns
}

func hasField(columns map[int]string, field string) bool {
	for _, f := range columns {
		if f == field {
			return true
		}
	}
	return false
}

func isBlank(values map[string]string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
