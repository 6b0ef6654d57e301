// internal/core/services/submission.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// Submitter maps the cart onto one Stock Entry.
type Submitter struct {
	client  ports.DocumentClient
	session ports.Session
	cart    ports.CartService
	now     func() time.Time
	logger  *slog.Logger
}

// Statically assert that *Submitter implements the SubmissionService interface.
var _ ports.SubmissionService = (*Submitter)(nil)

// NewSubmitter creates a submitter for cart.
func NewSubmitter(client ports.DocumentClient, session ports.Session, cart ports.CartService, logger *slog.Logger) *Submitter {
	return &Submitter{
		client:  client,
		session: session,
		cart:    cart,
		now:     time.Now,
		logger:  logger.With(slog.String("service", "submission")),
	}
}

// BuildStockEntry derives one line per cart item. Request defaults
// apply first and per-line overrides win.
func BuildStockEntry(req ports.SubmitRequest, items []domain.ScannedItem, now time.Time) *domain.StockEntry {
	entry := &domain.StockEntry{
		Type:           req.Type,
		NamingSeries:   req.NamingSeries,
		Company:        req.Company,
		PostingTime:    now,
		SetPostingTime: !req.PostingTime.IsZero(),
		Lines:          make([]domain.StockEntryLine, 0, len(items)),
	}
	if entry.SetPostingTime {
		entry.PostingTime = req.PostingTime
	}

	for _, it := range items {
		line := domain.StockEntryLine{
			ItemCode:        it.ItemCode,
			Quantity:        it.Quantity,
			UOM:             it.UOM,
			SourceWarehouse: req.SourceWarehouse,
			TargetWarehouse: req.TargetWarehouse,
			SourceRack:      req.SourceRack,
			TargetRack:      req.TargetRack,
		}
		if o, ok := req.Overrides[it.ItemCode]; ok {
			if o.SourceWarehouse != "" {
				line.SourceWarehouse = o.SourceWarehouse
			}
			if o.TargetWarehouse != "" {
				line.TargetWarehouse = o.TargetWarehouse
			}
			if o.SourceRack != "" {
				line.SourceRack = o.SourceRack
			}
			if o.TargetRack != "" {
				line.TargetRack = o.TargetRack
			}
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry
}

// Submit validates every line, creates the stock entry and clears the
// cart. Nothing is sent when any line lacks a required warehouse.
func (s *Submitter) Submit(ctx context.Context, req ports.SubmitRequest) (domain.Record, error) {
	items := s.cart.Items(ctx)
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	entry := BuildStockEntry(req, items, s.now())
	if err := entry.Validate(); err != nil {
		s.logger.InfoContext(ctx, "stock entry rejected",
			slog.String("type", string(req.Type)),
			slog.String("error", err.Error()))
		return nil, err
	}

	record, err := s.client.Create(ctx, domain.DocTypeStockEntry, entry.Fields())
	if err != nil {
		return nil, refreshOnAuth(ctx, s.session, s.logger,
			fmt.Errorf("failed to create stock entry: %w", err))
	}

	// The entry exists at this point; a failed deduct must not invite a resubmit.
	if err := s.cart.Deduct(ctx, items); err != nil {
		s.logger.ErrorContext(ctx, "stock entry created but cart not cleared",
			slog.String("stock_entry", record.Name()),
			slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "stock entry created",
		slog.String("stock_entry", record.Name()),
		slog.String("type", entry.Type.EntryType()),
		slog.Int("lines", len(entry.Lines)))
	return record, nil
}
