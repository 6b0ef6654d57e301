// internal/workers/attachment_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// AttachmentProcessor uploads staged files to the backend.
type AttachmentProcessor struct {
	uploader ports.FileUploader
	jobs     *JobTracker
	logger   *slog.Logger
}

// NewAttachmentProcessor creates a new attachment processor
func NewAttachmentProcessor(uploader ports.FileUploader, jobs *JobTracker, logger *slog.Logger) *AttachmentProcessor {
	return &AttachmentProcessor{
		uploader: uploader,
		jobs:     jobs,
		logger:   logger.With(slog.String("processor", "attachment")),
	}
}

// ProcessAttachmentUpload uploads one staged file. The staged copy is
// removed once the upload succeeds or will not be retried.
func (p *AttachmentProcessor) ProcessAttachmentUpload(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload AttachmentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	p.logger.InfoContext(ctx, "uploading attachment",
		slog.String("job_id", payload.JobID),
		slog.String("file_name", payload.FileName))
	p.jobs.Update(ctx, payload.JobID, TypeAttachmentUpload, JobProcessing, nil, "")

	uploaded, err := p.upload(ctx, payload)
	if err != nil {
		final := permanent(err) || lastAttempt(ctx)
		p.logger.ErrorContext(ctx, "attachment upload failed",
			slog.String("job_id", payload.JobID),
			slog.Bool("final", final),
			slog.String("error", err.Error()))
		if !final {
			return err
		}
		_ = os.Remove(payload.FilePath)
		p.jobs.Update(ctx, payload.JobID, TypeAttachmentUpload, JobFailed, nil, domain.UserMessage(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	_ = os.Remove(payload.FilePath)
	p.jobs.Update(ctx, payload.JobID, TypeAttachmentUpload, JobCompleted, uploaded, "")
	writeResult(ctx, p.logger, t, uploaded)

	p.logger.InfoContext(ctx, "attachment uploaded",
		slog.String("job_id", payload.JobID),
		slog.String("file_url", uploaded.FileURL),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (p *AttachmentProcessor) upload(ctx context.Context, payload AttachmentPayload) (*domain.UploadedFile, error) {
	f, err := os.Open(payload.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat staged file: %w", err)
	}

	return p.uploader.Upload(ctx, ports.UploadRequest{
		FileName:    payload.FileName,
		ContentType: payload.ContentType,
		Body:        f,
		Size:        info.Size(),
		IsPrivate:   payload.IsPrivate,
		Folder:      payload.Folder,
		DocType:     payload.DocType,
		DocName:     payload.DocName,
		FieldName:   payload.FieldName,
	})
}

// permanent reports failures that a retry cannot fix.
func permanent(err error) bool {
	return domain.IsValidation(err) ||
		errors.Is(err, domain.ErrFileTooLarge) ||
		errors.Is(err, os.ErrNotExist)
}
