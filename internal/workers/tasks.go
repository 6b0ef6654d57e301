// internal/workers/tasks.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeDashboardRefresh   = "dashboard:refresh"
	TypeAttachmentUpload   = "attachment:upload"
	TypeItemsImport        = "items:import"
	TypeCleanupStagedFiles = "cleanup:staged_files"
)

// Enqueuer is the part of asynq.Client the API uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AttachmentPayload describes a staged file waiting to be uploaded.
type AttachmentPayload struct {
	JobID       string `json:"job_id"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	IsPrivate   bool   `json:"is_private"`
	Folder      string `json:"folder,omitempty"`
	DocType     string `json:"doctype,omitempty"`
	DocName     string `json:"docname,omitempty"`
	FieldName   string `json:"fieldname,omitempty"`
}

// ItemsImportPayload points at a staged xlsx workbook.
type ItemsImportPayload struct {
	JobID    string `json:"job_id"`
	FilePath string `json:"file_path"`
	FileName string `json:"file_name,omitempty"`
}

// CleanupPayload bounds the age of staged files kept on disk.
type CleanupPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewAttachmentUploadTask creates an attachment:upload task.
func NewAttachmentUploadTask(p AttachmentPayload) (*asynq.Task, error) {
	return newTask(TypeAttachmentUpload, p)
}

// NewItemsImportTask creates an items:import task.
func NewItemsImportTask(p ItemsImportPayload) (*asynq.Task, error) {
	return newTask(TypeItemsImport, p)
}

// NewDashboardRefreshTask creates a dashboard:refresh task.
func NewDashboardRefreshTask() *asynq.Task {
	return asynq.NewTask(TypeDashboardRefresh, nil)
}

// NewCleanupTask creates a cleanup:staged_files task.
func NewCleanupTask(maxAge time.Duration) (*asynq.Task, error) {
	return newTask(TypeCleanupStagedFiles, CleanupPayload{MaxAge: maxAge})
}

func newTask(typename string, payload interface{}) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typename, err)
	}
	return asynq.NewTask(typename, b), nil
}

// DefaultMaxRetry replaces a negative asynq.retry_max.
const DefaultMaxRetry = 3

// TaskOptions are applied to every task the API enqueues.
func TaskOptions(maxRetry int) []asynq.Option {
	if maxRetry < 0 {
		maxRetry = DefaultMaxRetry
	}
	return []asynq.Option{
		asynq.Queue("default"),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(24 * time.Hour),
	}
}

// StageFile copies r into dir under a unique name and returns its path
// and size. The name keeps the original extension.
func StageFile(dir, fileName string, r io.Reader) (string, int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create staging directory: %w", err)
	}

	base := filepath.Base(fileName)
	if base == "." || base == string(filepath.Separator) {
		base = "upload"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s", uuid.New().String(), strings.ReplaceAll(base, " ", "_")))

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create staged file: %w", err)
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to stage file: %w", err)
	}
	return path, n, nil
}
