// internal/handlers/export.go
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/internal/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FetcherSource opens a paging fetcher over a doctype.
type FetcherSource interface {
	NewFetcher(doctype string, filters ...domain.Filter) (*services.Fetcher, error)
}

// ExportStore keeps finished exports and hands out download links.
type ExportStore interface {
	PutExport(ctx context.Context, name string, data []byte) (string, error)
	GetPresignedURL(ctx context.Context, key string, duration time.Duration) (string, error)
}

// ExportHandler streams list exports as xlsx workbooks.
type ExportHandler struct {
	responder
	source   FetcherSource
	exporter *workbook.ExcelExporter
	store    ExportStore
}

// NewExportHandler creates a new export handler. store may be nil, in
// which case store=true is refused.
func NewExportHandler(source FetcherSource, exporter *workbook.ExcelExporter, store ExportStore, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		responder: responder{logger: logger.With(slog.String("handler", "export"))},
		source:    source,
		exporter:  exporter,
		store:     store,
	}
}

// ExportList handles GET /api/v1/export/{doctype}. With store=true the
// workbook is kept in object storage and a download link is returned.
func (h *ExportHandler) ExportList(w http.ResponseWriter, r *http.Request) {
	doctype := r.PathValue("doctype")
	ctx := logger.WithDocType(r.Context(), doctype)

	store := queryBool(r, "store")
	if store && h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Export storage is not configured")
		return
	}

	fetcher, err := h.source.NewFetcher(doctype, listFilters(doctype, r)...)
	if err != nil {
		h.respondServiceError(ctx, w, "export", err)
		return
	}
	defer fetcher.Close()
	fetcher.SetSearch(strings.TrimSpace(r.URL.Query().Get("search")))

	result, err := h.exporter.Export(ctx, fetcher)
	if err != nil {
		h.respondServiceError(ctx, w, "export", err)
		return
	}

	if store {
		h.storeExport(ctx, w, result)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("X-Export-Rows", strconv.Itoa(result.Rows))
	w.Header().Set("X-Export-Truncated", strconv.FormatBool(result.Truncated))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.WarnContext(ctx, "failed to write export", slog.String("error", err.Error()))
	}
}

func (h *ExportHandler) storeExport(ctx context.Context, w http.ResponseWriter, result *workbook.Result) {
	key, err := h.store.PutExport(ctx, result.FileName, result.Data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store export", slog.String("error", err.Error()))
		h.respondError(w, http.StatusBadGateway, "Failed to store export")
		return
	}
	url, err := h.store.GetPresignedURL(ctx, key, time.Hour)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign export link", slog.String("error", err.Error()))
		h.respondError(w, http.StatusBadGateway, "Failed to create download link")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"key":       key,
		"url":       url,
		"file_name": result.FileName,
		"rows":      result.Rows,
		"truncated": result.Truncated,
	})
}
