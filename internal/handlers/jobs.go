// internal/handlers/jobs.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/stockscan/internal/workers"
)

// JobHandler reports on queued uploads and imports.
type JobHandler struct {
	responder
	jobs *workers.JobTracker
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs *workers.JobTracker, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		responder: responder{logger: logger.With(slog.String("handler", "jobs"))},
		jobs:      jobs,
	}
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	js, err := h.jobs.Get(ctx, r.PathValue("id"))
	if err != nil {
		h.respondServiceError(ctx, w, "get job", err)
		return
	}
	h.respondJSON(w, http.StatusOK, js)
}
