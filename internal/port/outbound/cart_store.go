package outbound

import (
	"context"
	"errors"

	"github.com/greenpack/storefront/internal/domain/cart"
)

// ErrCacheMiss is returned when a key is absent from the store.
var ErrCacheMiss = errors.New("cache miss")

// CartStorePort persists carts between requests.
type CartStorePort interface {
	Save(ctx context.Context, sessionID string, snapshot cart.Snapshot) error
	// Load returns ErrCacheMiss when nothing is stored for the session.
	Load(ctx context.Context, sessionID string) (*cart.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}
