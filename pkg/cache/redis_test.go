package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	require.NoError(t, c.Ping(ctx))

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte("payload"), 0))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"k"))

	got, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, hit, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(DefaultRedisPrefix+"k"))

	mr.FastForward(2 * time.Minute)
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheClearKeepsOtherPrefixes(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t, WithPrefix("test:"))

	require.NoError(t, mr.Set("other:x", "keep"))
	for _, k := range []string{"a", "b"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), 0))
	}

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("other:x"))
	assert.False(t, mr.Exists("test:a"))
}

func TestRedisCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := NewRedisCacheFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer c.Close()
	mr.Close()

	_, _, err = c.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}
