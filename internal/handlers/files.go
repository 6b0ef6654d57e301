// internal/handlers/files.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/workers"
)

// FileHandler uploads attachments and accepts item workbooks for import.
type FileHandler struct {
	responder
	uploader    ports.FileUploader
	queue       workers.Enqueuer
	jobs        *workers.JobTracker
	maxFileSize int64
	stagingDir  string
	taskOpts    []asynq.Option
}

// NewFileHandler creates a new file handler. queue may be nil, in which
// case async requests are refused.
func NewFileHandler(uploader ports.FileUploader, queue workers.Enqueuer, jobs *workers.JobTracker, maxFileSize int64, stagingDir string, logger *slog.Logger) *FileHandler {
	if maxFileSize <= 0 {
		maxFileSize = 50 << 20
	}
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "stockscan")
	}
	return &FileHandler{
		responder:   responder{logger: logger.With(slog.String("handler", "files"))},
		uploader:    uploader,
		queue:       queue,
		jobs:        jobs,
		maxFileSize: maxFileSize,
		stagingDir:  stagingDir,
		taskOpts:    workers.TaskOptions(workers.DefaultMaxRetry),
	}
}

// SetMaxRetry sets how often a worker retries the tasks this handler queues.
func (h *FileHandler) SetMaxRetry(n int) {
	h.taskOpts = workers.TaskOptions(n)
}

// UploadFile handles POST /api/v1/files. With async=true the file is
// staged and uploaded by a worker.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// the multipart envelope adds a little on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "File is too large. Please choose a smaller file.")
			return
		}
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		h.respondError(w, http.StatusRequestEntityTooLarge, "File is too large. Please choose a smaller file.")
		return
	}

	req := ports.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Size:        header.Size,
		IsPrivate:   formBool(r, "is_private"),
		Folder:      r.FormValue("folder"),
		DocType:     r.FormValue("doctype"),
		DocName:     r.FormValue("docname"),
		FieldName:   r.FormValue("fieldname"),
	}

	if queryBool(r, "async") {
		h.enqueueUpload(w, r, req)
		return
	}

	uploaded, err := h.uploader.Upload(ctx, req)
	if err != nil {
		h.respondServiceError(ctx, w, "upload", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"data": uploaded})
}

func (h *FileHandler) enqueueUpload(w http.ResponseWriter, r *http.Request, req ports.UploadRequest) {
	ctx := r.Context()
	if h.queue == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Background uploads are not available")
		return
	}

	path, _, err := workers.StageFile(h.stagingDir, req.FileName, req.Body)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to stage upload", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	payload := workers.AttachmentPayload{
		JobID:       uuid.New().String(),
		FilePath:    path,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		IsPrivate:   req.IsPrivate,
		Folder:      req.Folder,
		DocType:     req.DocType,
		DocName:     req.DocName,
		FieldName:   req.FieldName,
	}
	task, err := workers.NewAttachmentUploadTask(payload)
	if err == nil {
		_, err = h.queue.EnqueueContext(ctx, task, h.taskOpts...)
	}
	if err != nil {
		_ = os.Remove(path)
		h.logger.ErrorContext(ctx, "failed to enqueue upload", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue upload")
		return
	}

	h.jobs.Update(ctx, payload.JobID, workers.TypeAttachmentUpload, workers.JobQueued, nil, "")
	h.logger.InfoContext(ctx, "upload queued",
		slog.String("job_id", payload.JobID),
		slog.String("file_name", payload.FileName))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": payload.JobID,
		"status": "queued",
	})
}

// ImportItems handles POST /api/v1/items/import
func (h *FileHandler) ImportItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.queue == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Background imports are not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		h.respondError(w, http.StatusBadRequest, "Only .xlsx files are allowed")
		return
	}

	path, _, err := workers.StageFile(h.stagingDir, header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to stage workbook", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	payload := workers.ItemsImportPayload{
		JobID:    uuid.New().String(),
		FilePath: path,
		FileName: header.Filename,
	}
	task, err := workers.NewItemsImportTask(payload)
	if err == nil {
		_, err = h.queue.EnqueueContext(ctx, task, h.taskOpts...)
	}
	if err != nil {
		_ = os.Remove(path)
		h.logger.ErrorContext(ctx, "failed to enqueue import", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	h.jobs.Update(ctx, payload.JobID, workers.TypeItemsImport, workers.JobQueued, nil, "")
	h.logger.InfoContext(ctx, "item import queued",
		slog.String("job_id", payload.JobID),
		slog.String("file_name", header.Filename))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  payload.JobID,
		"status":  "queued",
		"message": "Item import has been queued for processing",
	})
}
