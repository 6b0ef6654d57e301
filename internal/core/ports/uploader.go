// internal/core/ports/uploader.go
package ports

import (
	"context"
	"io"

	"github.com/ammerola/stockscan/internal/core/domain"
)

//go:generate mockgen -source=uploader.go -destination=../../../test/mocks/uploader_mock.go -package=mocks

// UploadRequest describes one file upload. DocType, DocName and FieldName
// attach the file to a record field when all are set.
type UploadRequest struct {
	FileName    string
	ContentType string
	Body        io.Reader
	// Size is the body length in bytes, or -1 when unknown.
	Size       int64
	IsPrivate  bool
	Folder     string
	DocType    string
	DocName    string
	FieldName  string
	OnProgress func(sent, total int64)
}

// FileUploader uploads files to the backend.
type FileUploader interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.UploadedFile, error)
}
