// internal/workers/import_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/services"
)

// ImportResult is the outcome of an items:import job.
type ImportResult struct {
	*services.ImportSummary
	RowErrors []workbook.RowError `json:"row_errors,omitempty"`
}

// ImportProcessor creates items from staged workbooks.
type ImportProcessor struct {
	creator services.ItemCreator
	jobs    *JobTracker
	logger  *slog.Logger
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(creator services.ItemCreator, jobs *JobTracker, logger *slog.Logger) *ImportProcessor {
	return &ImportProcessor{
		creator: creator,
		jobs:    jobs,
		logger:  logger.With(slog.String("processor", "import")),
	}
}

// ProcessItemsImport reads the staged workbook and creates its items in
// order. The job is never retried: items created before a failure would
// be sent again.
func (p *ImportProcessor) ProcessItemsImport(ctx context.Context, t *asynq.Task) error {
	var payload ItemsImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	defer os.Remove(payload.FilePath)

	p.logger.InfoContext(ctx, "processing item workbook",
		slog.String("job_id", payload.JobID),
		slog.String("file_name", payload.FileName))
	p.jobs.Update(ctx, payload.JobID, TypeItemsImport, JobProcessing, nil, "")

	fail := func(err error) error {
		p.jobs.Update(ctx, payload.JobID, TypeItemsImport, JobFailed, nil, domain.UserMessage(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return fail(fmt.Errorf("failed to read workbook: %w", err))
	}

	items, rowErrs, err := workbook.ReadItems(data)
	if err != nil {
		return fail(err)
	}

	summary, err := services.ImportItems(ctx, p.creator, items, p.logger)
	result := ImportResult{ImportSummary: summary, RowErrors: rowErrs}
	if err != nil {
		p.jobs.Update(ctx, payload.JobID, TypeItemsImport, JobFailed, result, domain.UserMessage(err))
		writeResult(ctx, p.logger, t, result)
		return fmt.Errorf("item import aborted: %v: %w", err, asynq.SkipRetry)
	}

	status := JobCompleted
	if len(summary.Failed) > 0 || len(rowErrs) > 0 {
		status = JobCompletedWithErrors
	}
	p.jobs.Update(ctx, payload.JobID, TypeItemsImport, status, result, "")
	writeResult(ctx, p.logger, t, result)

	p.logger.InfoContext(ctx, "item workbook processed",
		slog.String("job_id", payload.JobID),
		slog.String("status", status),
		slog.Int("created", len(summary.Created)),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("unreadable_rows", len(rowErrs)))
	return nil
}
