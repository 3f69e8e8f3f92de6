package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/port/outbound"
)

func newTestStore(t *testing.T, ttl time.Duration) (outbound.CartStorePort, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartStore(client, ttl), mr
}

func TestCartStore(t *testing.T) {
	ctx := context.Background()
	c := cart.New()
	varieties := catalog.DefaultVarieties()
	_, err := c.AddItem(varieties[0], 2)
	require.NoError(t, err)
	snapshot := c.Snapshot()

	t.Run("save and load", func(t *testing.T) {
		store, mr := newTestStore(t, time.Hour)
		require.NoError(t, store.Save(ctx, "sess-1", snapshot))
		assert.True(t, mr.Exists("cart:sess-1"))

		loaded, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Subtotal.String(), loaded.Subtotal.String())
		require.Len(t, loaded.Items, 1)
		assert.Equal(t, "sunflower", loaded.Items[0].ProductID)

		restored := cart.New()
		require.NoError(t, restored.Restore(*loaded))
		assert.Equal(t, "24.00", restored.Subtotal().String())
	})

	t.Run("miss", func(t *testing.T) {
		store, _ := newTestStore(t, time.Hour)
		_, err := store.Load(ctx, "nobody")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("expires", func(t *testing.T) {
		store, mr := newTestStore(t, time.Minute)
		require.NoError(t, store.Save(ctx, "sess-2", snapshot))

		mr.FastForward(30 * time.Second)
		_, err := store.Load(ctx, "sess-2")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, mr.TTL("cart:sess-2"))

		mr.FastForward(2 * time.Minute)
		_, err = store.Load(ctx, "sess-2")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("delete", func(t *testing.T) {
		store, _ := newTestStore(t, time.Hour)
		require.NoError(t, store.Save(ctx, "sess-3", snapshot))
		require.NoError(t, store.Delete(ctx, "sess-3"))
		require.NoError(t, store.Delete(ctx, "sess-3"))

		_, err := store.Load(ctx, "sess-3")
		assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		store, mr := newTestStore(t, time.Hour)
		require.NoError(t, mr.Set("cart:sess-4", "{"))
		_, err := store.Load(ctx, "sess-4")
		assert.ErrorContains(t, err, "decode cart")
	})
}
