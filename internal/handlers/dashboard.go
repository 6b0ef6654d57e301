// internal/handlers/dashboard.go
package handlers

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	redis_a "github.com/ammerola/stockscan/internal/adapters/redis_adapter"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// DashboardHandler serves the home screen summary and stock lookups.
type DashboardHandler struct {
	responder
	dashboard ports.DashboardService
	stock     ports.StockService
	cache     ports.CacheRepository
	ttl       time.Duration
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard ports.DashboardService, stock ports.StockService, cache ports.CacheRepository, ttl time.Duration, logger *slog.Logger) *DashboardHandler {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardHandler{
		responder: responder{logger: logger.With(slog.String("handler", "dashboard"))},
		dashboard: dashboard,
		stock:     stock,
		cache:     cache,
		ttl:       ttl,
	}
}

// GetDashboard handles GET /api/v1/dashboard. refresh=true skips the cache.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := redis_a.DashboardKey()

	if queryBool(r, "refresh") {
		if err := h.cache.Delete(ctx, key); err != nil {
			h.logger.WarnContext(ctx, "failed to drop cached dashboard",
				slog.String("error", err.Error()))
		}
	}

	var stats domain.DashboardStats
	err := h.cache.GetOrSet(ctx, key, &stats, func() (interface{}, error) {
		return h.dashboard.Load(ctx), nil
	}, h.ttl)
	if err != nil {
		h.respondServiceError(ctx, w, "dashboard", err)
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// GetStock handles GET /api/v1/stock?item_code=A&item_code=B. Codes may
// also be given comma separated. refresh=true drops every cached stock
// figure, not only the requested set.
func (h *DashboardHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	codes := stockCodes(r)
	if len(codes) == 0 {
		h.respondError(w, http.StatusBadRequest, "item_code is required")
		return
	}

	if queryBool(r, "refresh") {
		if err := h.cache.DeletePattern(ctx, redis_a.BuildKey(redis_a.PrefixStock, "*")); err != nil {
			h.logger.WarnContext(ctx, "failed to drop cached stock",
				slog.String("error", err.Error()))
		}
	}

	var stock []domain.ItemStock
	key := redis_a.BuildKey(redis_a.PrefixStock, codes...)
	err := h.cache.GetOrSet(ctx, key, &stock, func() (interface{}, error) {
		return h.stock.ItemStock(ctx, codes)
	}, time.Minute)
	if err != nil {
		h.respondServiceError(ctx, w, "stock", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"data": stock})
}

func stockCodes(r *http.Request) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, v := range r.URL.Query()["item_code"] {
		for _, c := range strings.Split(v, ",") {
			c = strings.TrimSpace(c)
			if c != "" && !seen[c] {
				seen[c] = true
				codes = append(codes, c)
			}
		}
	}
	sort.Strings(codes)
	return codes
}
