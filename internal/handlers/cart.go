// internal/handlers/cart.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/pkg/logger"
)

// CartHandler serves the scan cart and its submission.
type CartHandler struct {
	responder
	cart      ports.CartService
	submitter ports.SubmissionService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart ports.CartService, submitter ports.SubmissionService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		responder: responder{logger: logger.With(slog.String("handler", "cart"))},
		cart:      cart,
		submitter: submitter,
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items := h.cart.Items(r.Context())
	h.respondJSON(w, http.StatusOK, cartResponse(items))
}

// Scan handles POST /api/v1/cart/scan
func (h *CartHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx := logger.WithItemCode(r.Context(), strings.TrimSpace(req.Code))

	result, err := h.cart.Scan(ctx, req.Code)
	if err != nil {
		if domain.IsValidation(err) || result == nil {
			h.respondServiceError(ctx, w, "scan", err)
			return
		}
		status := statusFor(err)
		h.logger.WarnContext(ctx, "scan failed",
			slog.Int("status", status),
			slog.String("error", err.Error()))
		h.respondJSON(w, status, ScanResponse{
			ScanResult:    *result,
			ResumeAfterMs: result.ResumeAfter.Milliseconds(),
			Error:         domain.UserMessage(err),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, ScanResponse{
		ScanResult:    *result,
		ResumeAfterMs: result.ResumeAfter.Milliseconds(),
	})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{code}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ctx := logger.WithItemCode(r.Context(), code)

	var req QuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.cart.SetQuantity(ctx, code, req.Int())
	if err != nil {
		h.respondServiceError(ctx, w, "set quantity", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

// RemoveItem handles DELETE /api/v1/cart/items/{code}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ctx := logger.WithItemCode(r.Context(), code)

	if err := h.cart.Remove(ctx, code); err != nil {
		h.respondServiceError(ctx, w, "remove item", err)
		return
	}
	h.respondJSON(w, http.StatusOK, cartResponse(h.cart.Items(ctx)))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.cart.Clear(ctx); err != nil {
		h.respondServiceError(ctx, w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /api/v1/cart/submit
func (h *CartHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithDocType(r.Context(), domain.DocTypeStockEntry)

	var req SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sr, err := req.toPort()
	if err != nil {
		h.respondServiceError(ctx, w, "submit", err)
		return
	}

	record, err := h.submitter.Submit(ctx, sr)
	if err != nil {
		h.respondServiceError(ctx, w, "submit", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"data": record})
}

func cartResponse(items []domain.ScannedItem) map[string]interface{} {
	if items == nil {
		items = []domain.ScannedItem{}
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return map[string]interface{}{
		"items":          items,
		"lines":          len(items),
		"total_quantity": total,
	}
}

// Request/Response DTOs

// ScanRequest is one raw read from a scanner.
type ScanRequest struct {
	Code string `json:"code"`
}

// ScanResponse reports a scan. ResumeAfterMs tells the scanner how long
// to pause before the next read.
type ScanResponse struct {
	domain.ScanResult
	ResumeAfterMs int64  `json:"resume_after_ms,omitempty"`
	Error         string `json:"error,omitempty"`
}

// QuantityRequest accepts the quantity as a number or as typed text.
type QuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// Int resolves the quantity, flooring anything unusable at 1.
func (q QuantityRequest) Int() int {
	var n json.Number
	if err := json.Unmarshal(q.Quantity, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return domain.ClampQuantity(int(i))
		}
		if f, err := n.Float64(); err == nil {
			return domain.ClampQuantity(int(f))
		}
	}
	var s string
	if err := json.Unmarshal(q.Quantity, &s); err == nil {
		return domain.ParseQuantity(s)
	}
	return domain.ClampQuantity(0)
}

// SubmitRequest represents the request body for submitting the cart
type SubmitRequest struct {
	Type            string                        `json:"type"`
	Company         string                        `json:"company,omitempty"`
	NamingSeries    string                        `json:"naming_series,omitempty"`
	SourceWarehouse string                        `json:"source_warehouse,omitempty"`
	TargetWarehouse string                        `json:"target_warehouse,omitempty"`
	SourceRack      string                        `json:"source_rack,omitempty"`
	TargetRack      string                        `json:"target_rack,omitempty"`
	PostingTime     *time.Time                    `json:"posting_time,omitempty"`
	Overrides       map[string]ports.LineOverride `json:"overrides,omitempty"`
}

func (req SubmitRequest) toPort() (ports.SubmitRequest, error) {
	t, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		ve := domain.NewValidationError()
		ve.Add("type", err.Error())
		return ports.SubmitRequest{}, ve
	}
	sr := ports.SubmitRequest{
		Type:            t,
		Company:         req.Company,
		NamingSeries:    req.NamingSeries,
		SourceWarehouse: req.SourceWarehouse,
		TargetWarehouse: req.TargetWarehouse,
		SourceRack:      req.SourceRack,
		TargetRack:      req.TargetRack,
		Overrides:       req.Overrides,
	}
	if req.PostingTime != nil {
		sr.PostingTime = *req.PostingTime
	}
	return sr, nil
}
