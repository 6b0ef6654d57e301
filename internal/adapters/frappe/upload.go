// internal/adapters/frappe/upload.go
package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

const uploadMethod = "upload_file"

// UploadConfig holds uploader configuration
type UploadConfig struct {
	Timeout       time.Duration
	MaxSizeBytes  int64
	DefaultFolder string
}

// Uploader streams multipart uploads to the backend after checking
// that the host is reachable.
type Uploader struct {
	client *Client
	http   *http.Client
	cfg    UploadConfig
	logger *slog.Logger
}

// Statically assert that *Uploader implements the FileUploader interface.
var _ ports.FileUploader = (*Uploader)(nil)

// NewUploader creates an uploader sharing client's base URL and tokens.
func NewUploader(client *Client, cfg UploadConfig, logger *slog.Logger) *Uploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.DefaultFolder == "" {
		cfg.DefaultFolder = "Home"
	}
	return &Uploader{
		client: client,
		// the upload deadline comes from the request context
		http:   &http.Client{},
		cfg:    cfg,
		logger: logger.With(slog.String("component", "uploader")),
	}
}

// Upload sends one file. Errors match domain.ErrCannotConnect,
// domain.ErrUploadTimeout, domain.ErrNetwork, domain.ErrAuthExpired or
// domain.ErrFileTooLarge depending on the cause.
func (u *Uploader) Upload(ctx context.Context, req ports.UploadRequest) (*domain.UploadedFile, error) {
	if req.Body == nil {
		return nil, errors.New("upload body is required")
	}
	if u.cfg.MaxSizeBytes > 0 && req.Size > u.cfg.MaxSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, req.Size, u.cfg.MaxSizeBytes)
	}
	if req.FileName == "" {
		req.FileName = "upload-" + uuid.NewString()
	}
	if req.Folder == "" {
		req.Folder = u.cfg.DefaultFolder
	}

	if err := u.client.Ping(ctx); err != nil {
		u.logger.WarnContext(ctx, "upload host unreachable",
			slog.String("error", err.Error()))
		return nil, err
	}

	token := ""
	if u.client.tokens != nil {
		t, err := u.client.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		token = t
	}

	uctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeForm(mw, req)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	endpoint := u.client.endpoint(methodPath(uploadMethod)...)
	httpReq, err := http.NewRequestWithContext(uctx, http.MethodPost, endpoint.String(), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := u.http.Do(httpReq)
	if err != nil {
		pr.Close()
		return nil, u.classify(ctx, uctx, endpoint.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, u.classify(ctx, uctx, endpoint.Path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		herr := newHTTPError(http.MethodPost, endpoint.Path, resp.StatusCode, body)
		u.logger.WarnContext(ctx, "upload rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("file_name", req.FileName))
		return nil, herr
	}

	var env struct {
		Message struct {
			Name      string `json:"name"`
			FileName  string `json:"file_name"`
			FileURL   string `json:"file_url"`
			IsPrivate int    `json:"is_private"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if env.Message.FileURL == "" {
		return nil, errors.New("upload response has no file_url")
	}

	u.logger.InfoContext(ctx, "file uploaded",
		slog.String("file_name", env.Message.FileName),
		slog.String("file_url", env.Message.FileURL),
		slog.Duration("duration", time.Since(start)))

	return &domain.UploadedFile{
		Name:      env.Message.Name,
		FileName:  env.Message.FileName,
		FileURL:   env.Message.FileURL,
		IsPrivate: env.Message.IsPrivate == 1,
	}, nil
}

func (u *Uploader) classify(parent, uctx context.Context, path string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var nerr net.Error
	if errors.Is(uctx.Err(), context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return fmt.Errorf("%w after %s", domain.ErrUploadTimeout, u.cfg.Timeout)
	}
	return &NetworkError{Method: http.MethodPost, Path: path, Err: err}
}

func writeForm(mw *multipart.Writer, req ports.UploadRequest) error {
	isPrivate := "0"
	if req.IsPrivate {
		isPrivate = "1"
	}
	fields := [][2]string{
		{"is_private", isPrivate},
		{"folder", req.Folder},
	}
	if req.DocType != "" && req.DocName != "" {
		fields = append(fields, [2]string{"doctype", req.DocType}, [2]string{"docname", req.DocName})
		if req.FieldName != "" {
			fields = append(fields, [2]string{"fieldname", req.FieldName})
		}
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(req.FileName)))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(req.FileName)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}

	src := io.Reader(req.Body)
	if req.OnProgress != nil {
		src = &progressReader{r: req.Body, total: req.Size, fn: req.OnProgress}
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to stream file: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports the bytes read so far after every read.
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
