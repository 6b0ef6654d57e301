// internal/core/ports/store.go
package ports

import "context"

//go:generate mockgen -source=store.go -destination=../../../test/mocks/store_mock.go -package=mocks

// KeyValueStore is durable string storage. Get returns
// domain.ErrKeyNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
