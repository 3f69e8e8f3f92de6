package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/infra/config"
)

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(ctx, &config.RedisConfig{Address: mr.Addr()})
		require.NoError(t, err)
		assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())
		assert.NoError(t, Close(client))
	})

	t.Run("fails fast when unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedisClient(ctx, &config.RedisConfig{Address: addr})
		assert.ErrorContains(t, err, "ping redis")
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		mr := miniredis.RunT(t)
		mr.RequireAuth("s3cret")

		_, err := NewRedisClient(ctx, &config.RedisConfig{Address: mr.Addr(), Password: "nope"})
		assert.Error(t, err)

		client, err := NewRedisClient(ctx, &config.RedisConfig{Address: mr.Addr(), Password: "s3cret"})
		require.NoError(t, err)
		_ = client.Close()
	})
}
