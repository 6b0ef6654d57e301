// internal/core/ports/document_client.go
package ports

import (
	"context"
	"encoding/json"

	"github.com/ammerola/stockscan/internal/core/domain"
)

//go:generate mockgen -source=document_client.go -destination=../../../test/mocks/document_client_mock.go -package=mocks

// DocumentClient is the backend's document API.
// Errors for 401/403 responses match domain.ErrAuthExpired.
type DocumentClient interface {
	List(ctx context.Context, doctype string, q domain.Query) ([]domain.Record, error)
	Get(ctx context.Context, doctype, name string) (domain.Record, error)
	Create(ctx context.Context, doctype string, fields map[string]any) (domain.Record, error)
	Update(ctx context.Context, doctype, name string, fields map[string]any) (domain.Record, error)
	Count(ctx context.Context, doctype string, filters []domain.Filter) (int, error)
}

// MethodCaller invokes whitelisted server methods.
type MethodCaller interface {
	Call(ctx context.Context, method string, params map[string]string) (json.RawMessage, error)
}

// Backend is a document client that can also call server methods.
type Backend interface {
	DocumentClient
	MethodCaller
}
