package workbook_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/test/helpers"
)

// fakePager serves pre-cut pages the way a Fetcher accumulates them.
type fakePager struct {
	spec    domain.ListSpec
	pages   [][]domain.Record
	state   services.PaginationState
	calls   int
	failAt  int
	failErr error
}

func (p *fakePager) Spec() domain.ListSpec { return p.spec }

func (p *fakePager) State() services.PaginationState { return p.state }

func (p *fakePager) Fetch(_ context.Context, mode services.FetchMode) error {
	p.calls++
	if p.failErr != nil && p.calls == p.failAt {
		return p.failErr
	}
	page := 0
	if mode == services.FetchAppend {
		page = p.state.Page + 1
	}
	if page >= len(p.pages) {
		p.state.HasMore = false
		return nil
	}
	recs := p.pages[page]
	if mode == services.FetchReplace {
		p.state.Items = append([]domain.Record(nil), recs...)
	} else {
		p.state.Items = append(p.state.Items, recs...)
	}
	p.state.Page = page
	p.state.HasMore = len(recs) == p.spec.PageSize
	return nil
}

func itemPages(sizes ...int) [][]domain.Record {
	var pages [][]domain.Record
	n := 0
	for _, size := range sizes {
		page := make([]domain.Record, size)
		for i := range page {
			n++
			page[i] = helpers.CreateTestItemRecord(fmt.Sprintf("ITEM-%03d", n))
		}
		pages = append(pages, page)
	}
	return pages
}

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	file, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	var rows [][]string
	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		var row []string
		_ = r.ForEachCell(func(c *xlsx.Cell) error {
			row = append(row, c.String())
			return nil
		})
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func itemSpec(t *testing.T) domain.ListSpec {
	spec, err := domain.LookupListSpec(domain.DocTypeItem)
	require.NoError(t, err)
	spec.PageSize = 2
	return spec
}

func TestExport_PagesUntilExhausted(t *testing.T) {
	pager := &fakePager{spec: itemSpec(t), pages: itemPages(2, 2, 1)}
	exporter := workbook.NewExcelExporter(0, helpers.TestLogger())

	res, err := exporter.Export(context.Background(), pager)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.False(t, res.Truncated)
	assert.Equal(t, 3, pager.calls)
	assert.Regexp(t, `^item_\d{8}_\d{6}\.xlsx$`, res.FileName)

	rows := readSheet(t, res.Data)
	require.Len(t, rows, 6)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "Item Code", rows[0][1])
	assert.Equal(t, "ITEM-001", rows[1][1])
	assert.Equal(t, "ITEM-005", rows[5][1])
}

func TestExport_RowCap(t *testing.T) {
	pager := &fakePager{spec: itemSpec(t), pages: itemPages(2, 2, 2, 2)}
	exporter := workbook.NewExcelExporter(3, helpers.TestLogger())

	res, err := exporter.Export(context.Background(), pager)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.True(t, res.Truncated)
	assert.Equal(t, 2, pager.calls)
}

func TestExport_FetchFailure(t *testing.T) {
	boom := errors.New("backend down")
	pager := &fakePager{spec: itemSpec(t), pages: itemPages(2, 2), failAt: 2, failErr: boom}
	exporter := workbook.NewExcelExporter(0, helpers.TestLogger())

	_, err := exporter.Export(context.Background(), pager)
	assert.ErrorIs(t, err, boom)
}

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Items")
	require.NoError(t, err)
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().Value = v
		}
	}
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

func TestReadItems(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"Item Code", "Item Name", "Item Group", "UOM", "Notes"},
		{"SKU-1", "Widget", "Products", "Nos", "ignored"},
		{"", "", "", "", ""},
		{"SKU-2", "", "Products", "", ""},
		{"SKU-3", "Gadget", "", "", ""},
	})

	items, rowErrs, err := workbook.ReadItems(data)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemInput{ItemCode: "SKU-1", ItemName: "Widget", ItemGroup: "Products", StockUOM: "Nos"}, items[0])
	// name falls back to the code
	assert.Equal(t, "SKU-2", items[1].ItemName)

	require.Len(t, rowErrs, 1)
	assert.Equal(t, 5, rowErrs[0].Row)
	assert.Contains(t, rowErrs[0].Err, "item_group")
}

func TestReadItems_NoCodeColumn(t *testing.T) {
	data := buildWorkbook(t, [][]string{{"Title"}, {"x"}})
	_, _, err := workbook.ReadItems(data)
	assert.Error(t, err)
}
