package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/config"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(&config.Config{Redis: config.RedisConfig{Addr: mr.Addr()}})
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
}

func TestPendingCount_MissThenHit(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.GetPendingCount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetPendingCount(ctx, 7, 3))
	n, ok, err := c.GetPendingCount(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, PendingCountTTL, mr.TTL(c.KeyForPendingCount(7)))
}

func TestPendingCount_Expires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetPendingCount(ctx, 1, 5))
	mr.FastForward(PendingCountTTL + 1)

	_, ok, err := c.GetPendingCount(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidatePending(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetPendingCount(ctx, 1, 1))
	require.NoError(t, c.SetPendingCount(ctx, 2, 2))
	require.NoError(t, c.InvalidatePending(ctx, 1, 2))
	require.NoError(t, c.InvalidatePending(ctx))

	for _, id := range []uint64{1, 2} {
		_, ok, err := c.GetPendingCount(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
