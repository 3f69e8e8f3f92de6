package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/port/outbound"
)

const cartKeyPrefix = "cart:"

// cartStore implements outbound.CartStorePort. Carts are stored as JSON
// snapshots and expire after ttl without activity.
type cartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates a new cart store adapter.
func NewCartStore(client *redis.Client, ttl time.Duration) outbound.CartStorePort {
	return &cartStore{client: client, ttl: ttl}
}

func (s *cartStore) key(sessionID string) string {
	return cartKeyPrefix + sessionID
}

func (s *cartStore) Save(ctx context.Context, sessionID string, snapshot cart.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err()
}

func (s *cartStore) Load(ctx context.Context, sessionID string) (*cart.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbound.ErrCacheMiss
		}
		return nil, err
	}

	var snapshot cart.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	// Reading refreshes the expiry.
	if s.ttl > 0 {
		s.client.Expire(ctx, s.key(sessionID), s.ttl)
	}
	return &snapshot, nil
}

func (s *cartStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Compile-time check
var _ outbound.CartStorePort = (*cartStore)(nil)
