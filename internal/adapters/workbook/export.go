// internal/adapters/workbook/export.go
package workbook

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
)

// DefaultMaxRows caps one export.
const DefaultMaxRows = 10000

// Pager is the paging surface the exporter drives.
type Pager interface {
	Fetch(ctx context.Context, mode services.FetchMode) error
	State() services.PaginationState
	Spec() domain.ListSpec
}

// ExcelExporter writes list results to xlsx workbooks.
type ExcelExporter struct {
	maxRows int
	logger  *slog.Logger
}

// NewExcelExporter creates an exporter. maxRows <= 0 uses DefaultMaxRows.
func NewExcelExporter(maxRows int, logger *slog.Logger) *ExcelExporter {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &ExcelExporter{
		maxRows: maxRows,
		logger:  logger.With(slog.String("component", "excel_exporter")),
	}
}

// Result describes a finished export.
type Result struct {
	Data      []byte
	Rows      int
	Truncated bool
	FileName  string
}

// Export pages through p until it runs out of pages or reaches the row
// cap, and renders every record as one row of the spec's fields.
func (e *ExcelExporter) Export(ctx context.Context, p Pager) (*Result, error) {
	spec := p.Spec()
	start := time.Now()

	if err := p.Fetch(ctx, services.FetchReplace); err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}
	st := p.State()
	records := st.Items

	for st.HasMore && len(records) < e.maxRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.Fetch(ctx, services.FetchAppend); err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", st.Page+1, err)
		}
		next := p.State()
		if len(next.Items) <= len(records) {
			break
		}
		st = next
		records = st.Items
	}

	truncated := st.HasMore
	if len(records) > e.maxRows {
		records = records[:e.maxRows]
		truncated = true
	}

	data, err := e.Render(spec, records)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "export completed",
		slog.String("doctype", spec.DocType),
		slog.Int("rows", len(records)),
		slog.Bool("truncated", truncated),
		slog.Duration("duration", time.Since(start)))

	return &Result{
		Data:      data,
		Rows:      len(records),
		Truncated: truncated,
		FileName:  FileName(spec.DocType, time.Now()),
	}, nil
}

// Render writes records to a single-sheet workbook.
func (e *ExcelExporter) Render(spec domain.ListSpec, records []domain.Record) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet(sheetName(spec.DocType))
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, field := range spec.Fields {
		cell := headerRow.AddCell()
		cell.Value = header(field)
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, r := range records {
		row := sheet.AddRow()
		for _, field := range spec.Fields {
			cell := row.AddCell()
			cell.Value = r.String(field)
		}
	}

	for i := range spec.Fields {
		sheet.SetColWidth(i+1, i+1, 18)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}
	return buffer.Bytes(), nil
}

// FileName names an export of doctype taken at t.
func FileName(doctype string, t time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", domain.Slug(doctype), t.Format("20060102_150405"))
}

// header turns item_group into "Item Group".
func header(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if p == "uom" || p == "qty" {
			parts[i] = strings.ToUpper(p)
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// sheetName trims to the 31 characters xlsx allows.
func sheetName(doctype string) string {
	if doctype == "" {
		return "Sheet1"
	}
	if len(doctype) > 31 {
		return doctype[:31]
	}
	return doctype
}
