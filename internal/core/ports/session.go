// internal/core/ports/session.go
package ports

import (
	"context"

	"github.com/ammerola/stockscan/internal/core/domain"
)

//go:generate mockgen -source=session.go -destination=../../../test/mocks/session_mock.go -package=mocks

// Session owns the access token used for every backend call.
type Session interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
	// OnChange registers fn for token changes. The returned func unregisters it.
	OnChange(fn func(domain.Token)) func()
}
