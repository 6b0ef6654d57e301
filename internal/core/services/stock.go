// internal/core/services/stock.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

const (
	binsPerItemLimit   = 500
	defaultConcurrency = 4
)

// StockService reads Bin quantities.
type StockService struct {
	client      ports.DocumentClient
	session     ports.Session
	concurrency int
	logger      *slog.Logger
}

// Statically assert that *StockService implements the StockService interface.
var _ ports.StockService = (*StockService)(nil)

// NewStockService creates a new stock service
func NewStockService(client ports.DocumentClient, session ports.Session, logger *slog.Logger) *StockService {
	return &StockService{
		client:      client,
		session:     session,
		concurrency: defaultConcurrency,
		logger:      logger.With(slog.String("service", "stock")),
	}
}

// ItemStock sums the bins of each code. Results keep the order of codes;
// any failed lookup fails the whole call.
func (s *StockService) ItemStock(ctx context.Context, codes []string) ([]domain.ItemStock, error) {
	out := make([]domain.ItemStock, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, code := range codes {
		g.Go(func() error {
			bins, err := s.client.List(gctx, domain.DocTypeBin, domain.Query{
				Fields:  []string{"name", "item_code", "item_name", "warehouse", "actual_qty", "stock_uom"},
				Filters: []domain.Filter{domain.Eq("item_code", code)},
				Sort:    domain.Sort{Field: "creation", Order: domain.SortDesc},
				Limit:   binsPerItemLimit,
			})
			if err != nil {
				return fmt.Errorf("failed to load bins for %s: %w", code, err)
			}
			out[i] = domain.SummarizeBins(code, bins)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, refreshOnAuth(ctx, s.session, s.logger, err)
	}

	s.logger.DebugContext(ctx, "item stock loaded", slog.Int("items", len(codes)))
	return out, nil
}

// BinFetcher pages through the bins of one item, newest first.
func (s *StockService) BinFetcher(itemCode string) *Fetcher {
	return NewFetcher(s.client, s.session, domain.BinsForItemSpec(), s.logger,
		domain.Eq("item_code", itemCode))
}
