// internal/handlers/records.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/pkg/logger"
)

// RecordHandler serves the list, detail and create-form endpoints.
type RecordHandler struct {
	responder
	service     ports.RecordService
	maxFormSize int64
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(service ports.RecordService, maxFormSize int64, logger *slog.Logger) *RecordHandler {
	if maxFormSize <= 0 {
		maxFormSize = 32 << 20
	}
	return &RecordHandler{
		responder:   responder{logger: logger.With(slog.String("handler", "records"))},
		service:     service,
		maxFormSize: maxFormSize,
	}
}

// ListRecords handles GET /api/v1/records/{doctype}
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	doctype := r.PathValue("doctype")
	ctx := logger.WithDocType(r.Context(), doctype)

	params := ports.ListParams{
		Search:  strings.TrimSpace(r.URL.Query().Get("search")),
		Filters: listFilters(doctype, r),
		Page:    max(queryInt(r, "page", 0), 0),
	}

	page, err := h.service.List(ctx, doctype, params)
	if err != nil {
		h.respondServiceError(ctx, w, "list", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":     page.Records,
		"has_more": page.HasMore,
		"page":     params.Page,
	})
}

// GetRecord handles GET /api/v1/records/{doctype}/{name}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	doctype := r.PathValue("doctype")
	ctx := logger.WithDocType(r.Context(), doctype)

	record, err := h.service.Get(ctx, doctype, r.PathValue("name"))
	if err != nil {
		h.respondServiceError(ctx, w, "get", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"data": record})
}

// UpdateRecord handles PUT /api/v1/records/{doctype}/{name}
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	doctype := r.PathValue("doctype")
	ctx := logger.WithDocType(r.Context(), doctype)

	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&fields); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// the name is the route, not the payload
	delete(fields, "name")

	record, err := h.service.Update(ctx, doctype, r.PathValue("name"), fields)
	if err != nil {
		h.respondServiceError(ctx, w, "update", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"data": record})
}

// CreateItem handles POST /api/v1/items. A JSON body creates the item;
// a multipart body may also carry an "image" file uploaded first.
func (h *RecordHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithDocType(r.Context(), domain.DocTypeItem)

	var (
		in    domain.ItemInput
		image *ports.UploadRequest
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFormSize)
		if err := r.ParseMultipartForm(h.maxFormSize); err != nil {
			h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
			return
		}
		in = domain.ItemInput{
			ItemCode:    r.FormValue("item_code"),
			ItemName:    r.FormValue("item_name"),
			ItemGroup:   r.FormValue("item_group"),
			StockUOM:    r.FormValue("stock_uom"),
			Description: r.FormValue("description"),
			Barcode:     r.FormValue("custom_barcode"),
		}
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			image = &ports.UploadRequest{
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
				Size:        header.Size,
			}
		}
	} else if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := h.service.CreateItem(ctx, in, image)
	if err != nil {
		h.respondServiceError(ctx, w, "create item", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"data": record})
}

// CreateItemGroup handles POST /api/v1/item-groups
func (h *RecordHandler) CreateItemGroup(w http.ResponseWriter, r *http.Request) {
	var in domain.ItemGroupInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx := logger.WithDocType(r.Context(), domain.DocTypeItemGroup)
	record, err := h.service.CreateItemGroup(ctx, in)
	if err != nil {
		h.respondServiceError(ctx, w, "create item group", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"data": record})
}

// CreateUOM handles POST /api/v1/uoms
func (h *RecordHandler) CreateUOM(w http.ResponseWriter, r *http.Request) {
	var in domain.UOMInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx := logger.WithDocType(r.Context(), domain.DocTypeUOM)
	record, err := h.service.CreateUOM(ctx, in)
	if err != nil {
		h.respondServiceError(ctx, w, "create uom", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"data": record})
}

// CreateWarehouse handles POST /api/v1/warehouses
func (h *RecordHandler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var in domain.WarehouseInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx := logger.WithDocType(r.Context(), domain.DocTypeWarehouse)
	record, err := h.service.CreateWarehouse(ctx, in)
	if err != nil {
		h.respondServiceError(ctx, w, "create warehouse", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"data": record})
}

// ListOptions handles GET /api/v1/options/{kind}
func (h *RecordHandler) ListOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.Options(ctx, r.PathValue("kind"))
	if err != nil {
		h.respondServiceError(ctx, w, "options", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

// listFilters reads the screen toggles of doctype from the query string.
// Warehouses and units list enabled records unless enabled=false.
func listFilters(doctype string, r *http.Request) []domain.Filter {
	q := r.URL.Query()
	enabled := true
	if v, err := strconv.ParseBool(q.Get("enabled")); err == nil {
		enabled = v
	}

	spec, err := domain.LookupListSpec(doctype)
	if err != nil {
		return nil
	}
	switch spec.DocType {
	case domain.DocTypeWarehouse:
		f := domain.WarehouseFilter{
			Enabled: enabled,
			Company: q.Get("company"),
			Parent:  q.Get("parent"),
		}
		if v, err := strconv.ParseBool(q.Get("is_group")); err == nil {
			f.Groups = &v
		}
		return f.Filters()
	case domain.DocTypeUOM:
		return domain.UOMFilter{Enabled: enabled}.Filters()
	case domain.DocTypeItem:
		if g := q.Get("item_group"); g != "" {
			return []domain.Filter{domain.Eq("item_group", g)}
		}
	case domain.DocTypeStockEntry:
		if t := q.Get("stock_entry_type"); t != "" {
			return []domain.Filter{domain.Eq("stock_entry_type", t)}
		}
	case domain.DocTypeBin:
		if code := q.Get("item_code"); code != "" {
			return []domain.Filter{domain.Eq("item_code", code)}
		}
	}
	return nil
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.FormValue(key))
	return b
}
