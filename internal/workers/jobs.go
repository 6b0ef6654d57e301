// internal/workers/jobs.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// Job statuses
const (
	JobQueued              = "queued"
	JobProcessing          = "processing"
	JobCompleted           = "completed"
	JobCompletedWithErrors = "completed_with_errors"
	JobFailed              = "failed"
)

// JobStatus is the last known state of a background job.
type JobStatus struct {
	JobID     string          `json:"job_id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobTracker keeps job statuses in the key-value store so the API can
// report on work done by another process. A nil tracker records nothing.
type JobTracker struct {
	store  ports.KeyValueStore
	logger *slog.Logger
}

// NewJobTracker creates a job tracker over store.
func NewJobTracker(store ports.KeyValueStore, logger *slog.Logger) *JobTracker {
	return &JobTracker{
		store:  store,
		logger: logger.With(slog.String("component", "job_tracker")),
	}
}

// JobKey is the store key of a job.
func JobKey(jobID string) string {
	return "job:" + jobID
}

// Update records a status. Failures are logged, not returned.
func (j *JobTracker) Update(ctx context.Context, jobID, jobType, status string, result interface{}, errMsg string) {
	if j == nil || jobID == "" {
		return
	}

	js := JobStatus{
		JobID:     jobID,
		Type:      jobType,
		Status:    status,
		Error:     errMsg,
		UpdatedAt: time.Now().UTC(),
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			j.logger.WarnContext(ctx, "failed to encode job result",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		} else {
			js.Result = raw
		}
	}

	data, err := json.Marshal(js)
	if err == nil {
		err = j.store.Set(ctx, JobKey(jobID), string(data))
	}
	if err != nil {
		j.logger.WarnContext(ctx, "failed to record job status",
			slog.String("job_id", jobID),
			slog.String("status", status),
			slog.String("error", err.Error()))
	}
}

// Get returns the status of a job, or domain.ErrNotFound.
func (j *JobTracker) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	raw, err := j.store.Get(ctx, JobKey(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}

	var js JobStatus
	if err := json.Unmarshal([]byte(raw), &js); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &js, nil
}

// writeResult stores v as the task result when the task runs under a
// server. Tasks built directly with asynq.NewTask have no writer.
func writeResult(ctx context.Context, logger *slog.Logger, t *asynq.Task, v interface{}) {
	w := t.ResultWriter()
	if w == nil {
		return
	}
	data, err := json.Marshal(v)
	if err == nil {
		_, err = w.Write(data)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to write task result",
			slog.String("task_id", w.TaskID()),
			slog.String("error", err.Error()))
	}
}

// lastAttempt reports whether a failure now will not be retried.
func lastAttempt(ctx context.Context) bool {
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return true
	}
	return retried >= maxRetry
}
