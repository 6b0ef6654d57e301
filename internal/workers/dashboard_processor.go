// internal/workers/dashboard_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	redis_a "github.com/ammerola/stockscan/internal/adapters/redis_adapter"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// DashboardProcessor keeps the cached dashboard warm.
type DashboardProcessor struct {
	dashboard ports.DashboardService
	cache     ports.CacheRepository
	ttl       time.Duration
	logger    *slog.Logger
}

// NewDashboardProcessor creates a new dashboard processor
func NewDashboardProcessor(dashboard ports.DashboardService, cache ports.CacheRepository, ttl time.Duration, logger *slog.Logger) *DashboardProcessor {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardProcessor{
		dashboard: dashboard,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With(slog.String("processor", "dashboard")),
	}
}

// ProcessDashboardRefresh reloads the dashboard and replaces the cached copy.
func (p *DashboardProcessor) ProcessDashboardRefresh(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	stats := p.dashboard.Load(ctx)
	if len(stats.Failures) > 0 {
		p.logger.WarnContext(ctx, "dashboard refreshed with failures",
			slog.Any("failures", stats.Failures))
	}

	if err := p.cache.SetWithTTL(ctx, redis_a.DashboardKey(), stats, p.ttl); err != nil {
		return fmt.Errorf("failed to cache dashboard: %w", err)
	}

	p.logger.InfoContext(ctx, "dashboard refreshed",
		slog.Int("items", stats.ItemCount),
		slog.Int("monthly_entries", stats.MonthlyEntries),
		slog.Duration("duration", time.Since(start)))
	return nil
}
