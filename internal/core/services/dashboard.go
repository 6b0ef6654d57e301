// internal/core/services/dashboard.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// Dashboard fetch parameters
const (
	DefaultLowStockMethod = "get_low_stock_items"
	MonthlyEntriesLimit   = 1000
	RecentEntriesLimit    = 5
)

// Dashboard loads the home screen figures concurrently. Each sub-fetch
// that fails falls back to its zero value without affecting the others.
type Dashboard struct {
	backend        ports.Backend
	session        ports.Session
	lowStockMethod string
	now            func() time.Time
	logger         *slog.Logger
}

// Statically assert that *Dashboard implements the DashboardService interface.
var _ ports.DashboardService = (*Dashboard)(nil)

// NewDashboard creates a dashboard loader. An empty lowStockMethod uses
// DefaultLowStockMethod.
func NewDashboard(backend ports.Backend, session ports.Session, lowStockMethod string, logger *slog.Logger) *Dashboard {
	if lowStockMethod == "" {
		lowStockMethod = DefaultLowStockMethod
	}
	return &Dashboard{
		backend:        backend,
		session:        session,
		lowStockMethod: lowStockMethod,
		now:            time.Now,
		logger:         logger.With(slog.String("service", "dashboard")),
	}
}

// Load runs every sub-fetch and waits for all of them.
func (d *Dashboard) Load(ctx context.Context) *domain.DashboardStats {
	now := d.now()
	stats := &domain.DashboardStats{
		LowStockItems: []domain.Record{},
		EntriesByType: map[string]int{},
		RecentEntries: []domain.Record{},
		Failures:      map[string]string{},
		GeneratedAt:   now,
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		authSeen bool
	)
	run := func(part string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				stats.Failures[part] = domain.UserMessage(err)
				if errors.Is(err, domain.ErrAuthExpired) {
					authSeen = true
				}
				mu.Unlock()
				d.logger.WarnContext(ctx, "dashboard part failed",
					slog.String("part", part),
					slog.String("error", err.Error()))
			}
		}()
	}
	count := func(part, doctype string, dst *int) {
		run(part, func() error {
			n, err := d.backend.Count(ctx, doctype, nil)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", doctype, err)
			}
			mu.Lock()
			*dst = n
			mu.Unlock()
			return nil
		})
	}

	count("items", domain.DocTypeItem, &stats.ItemCount)
	count("item_groups", domain.DocTypeItemGroup, &stats.ItemGroupCount)
	count("uoms", domain.DocTypeUOM, &stats.UOMCount)
	count("warehouses", domain.DocTypeWarehouse, &stats.WarehouseCount)

	run("low_stock", func() error {
		items, err := d.lowStock(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		stats.LowStockItems = items
		mu.Unlock()
		return nil
	})

	run("monthly_entries", func() error {
		entries, err := d.backend.List(ctx, domain.DocTypeStockEntry, domain.Query{
			Fields:  []string{"name", "stock_entry_type", "posting_date"},
			Filters: []domain.Filter{{Field: "posting_date", Operator: domain.OpGreaterOrEq, Value: domain.MonthStart(now).Format("2006-01-02")}},
			Sort:    domain.Sort{Field: "posting_date", Order: domain.SortDesc},
			Limit:   MonthlyEntriesLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list monthly stock entries: %w", err)
		}
		byType := make(map[string]int)
		for _, e := range entries {
			byType[e.String("stock_entry_type")]++
		}
		mu.Lock()
		stats.MonthlyEntries = len(entries)
		stats.EntriesByType = byType
		mu.Unlock()
		return nil
	})

	run("recent_entries", func() error {
		spec, _ := domain.LookupListSpec(domain.DocTypeStockEntry)
		entries, err := d.backend.List(ctx, domain.DocTypeStockEntry, domain.Query{
			Fields: spec.Fields,
			Sort:   domain.Sort{Field: "modified", Order: domain.SortDesc},
			Limit:  RecentEntriesLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list recent stock entries: %w", err)
		}
		mu.Lock()
		stats.RecentEntries = entries
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if authSeen && d.session != nil {
		if err := d.session.Refresh(ctx); err != nil {
			d.logger.WarnContext(ctx, "token refresh failed",
				slog.String("error", err.Error()))
		}
	}
	if len(stats.Failures) == 0 {
		stats.Failures = nil
	}
	return stats
}

func (d *Dashboard) lowStock(ctx context.Context) ([]domain.Record, error) {
	raw, err := d.backend.Call(ctx, d.lowStockMethod, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", d.lowStockMethod, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return []domain.Record{}, nil
	}
	var msg struct {
		Data []domain.Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode low stock items: %w", err)
	}
	if msg.Data == nil {
		msg.Data = []domain.Record{}
	}
	return msg.Data, nil
}
