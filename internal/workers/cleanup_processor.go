// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultStagedFileMaxAge is used when a cleanup task names no age.
const DefaultStagedFileMaxAge = 24 * time.Hour

// CleanupProcessor removes staged files left behind by failed jobs.
type CleanupProcessor struct {
	stagingDir string
	logger     *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(stagingDir string, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		stagingDir: stagingDir,
		logger:     logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupStagedFiles removes staged files older than the payload's max age.
func (p *CleanupProcessor) CleanupStagedFiles(ctx context.Context, t *asynq.Task) error {
	payload := CleanupPayload{MaxAge: DefaultStagedFileMaxAge}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
		if payload.MaxAge <= 0 {
			payload.MaxAge = DefaultStagedFileMaxAge
		}
	}

	p.logger.InfoContext(ctx, "cleaning up staged files",
		slog.String("dir", p.stagingDir),
		slog.Duration("max_age", payload.MaxAge))

	var deletedCount int
	err := filepath.WalkDir(p.stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == p.stagingDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if time.Since(info.ModTime()) > payload.MaxAge {
			if err := os.Remove(path); err != nil {
				p.logger.WarnContext(ctx, "failed to delete staged file",
					slog.String("file", path),
					slog.String("error", err.Error()))
			} else {
				deletedCount++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk staging directory: %w", err)
	}

	p.logger.InfoContext(ctx, "staged files cleaned up",
		slog.Int("files_deleted", deletedCount))
	return nil
}
