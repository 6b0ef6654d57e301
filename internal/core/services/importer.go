// internal/core/services/importer.go
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// ItemCreator creates one item from a form.
type ItemCreator interface {
	CreateItem(ctx context.Context, in domain.ItemInput, image *ports.UploadRequest) (domain.Record, error)
}

// ImportFailure is one item the backend refused.
type ImportFailure struct {
	ItemCode string `json:"item_code"`
	Error    string `json:"error"`
}

// ImportSummary reports the outcome of an item import.
type ImportSummary struct {
	Total    int             `json:"total"`
	Created  []string        `json:"created"`
	Failed   []ImportFailure `json:"failed,omitempty"`
	Aborted  bool            `json:"aborted"`
	Duration time.Duration   `json:"duration"`
}

// ImportItems creates items one at a time in order. A refused item is
// recorded and skipped. Auth and connection failures stop the import
// and are returned together with the partial summary.
func ImportItems(ctx context.Context, creator ItemCreator, items []domain.ItemInput, logger *slog.Logger) (*ImportSummary, error) {
	start := time.Now()
	summary := &ImportSummary{Total: len(items), Created: []string{}}

	for _, in := range items {
		if err := ctx.Err(); err != nil {
			summary.Aborted = true
			summary.Duration = time.Since(start)
			return summary, err
		}

		record, err := creator.CreateItem(ctx, in, nil)
		if err != nil {
			if stopsImport(err) {
				summary.Aborted = true
				summary.Duration = time.Since(start)
				logger.ErrorContext(ctx, "item import aborted",
					slog.String("item_code", in.ItemCode),
					slog.Int("created", len(summary.Created)),
					slog.String("error", err.Error()))
				return summary, err
			}
			summary.Failed = append(summary.Failed, ImportFailure{
				ItemCode: in.ItemCode,
				Error:    domain.UserMessage(err),
			})
			logger.WarnContext(ctx, "item import row rejected",
				slog.String("item_code", in.ItemCode),
				slog.String("error", err.Error()))
			continue
		}
		name := record.Name()
		if name == "" {
			name = in.ItemCode
		}
		summary.Created = append(summary.Created, name)
	}

	summary.Duration = time.Since(start)
	logger.InfoContext(ctx, "item import completed",
		slog.Int("total", summary.Total),
		slog.Int("created", len(summary.Created)),
		slog.Int("failed", len(summary.Failed)),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func stopsImport(err error) bool {
	return errors.Is(err, domain.ErrAuthExpired) ||
		errors.Is(err, domain.ErrNetwork) ||
		errors.Is(err, domain.ErrCannotConnect) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
