// internal/core/services/auth.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// refreshOnAuth hands authorization failures to the session. The
// operation itself is never retried here; err is returned as is so the
// caller can decide.
func refreshOnAuth(ctx context.Context, session ports.Session, logger *slog.Logger, err error) error {
	if err == nil || session == nil || !errors.Is(err, domain.ErrAuthExpired) {
		return err
	}

	logger.InfoContext(ctx, "authorization expired, refreshing token")
	if rerr := session.Refresh(ctx); rerr != nil {
		logger.WarnContext(ctx, "token refresh failed",
			slog.String("error", rerr.Error()))
		return errors.Join(err, fmt.Errorf("failed to refresh token: %w", rerr))
	}
	return err
}
