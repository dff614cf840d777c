package redis

import (
	"context"
	"testing"
	"time"

	"shoe_market_backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), &config.Config{RedisURL: "redis://" + mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNew_DisabledWithoutURL(t *testing.T) {
	c, err := New(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, c.Close())
}

func TestNew_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), &config.Config{RedisURL: "redis://" + addr}, zap.NewNop())
	assert.Error(t, err)
}

func TestIncrWithTTL_ExpirySetOnFirstIncrementOnly(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	n, err := c.IncrWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, mr.TTL("counter"))

	mr.FastForward(40 * time.Second)
	n, err = c.IncrWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	// the window keeps its original deadline
	assert.Equal(t, 20*time.Second, mr.TTL("counter"))

	mr.FastForward(20 * time.Second)
	assert.False(t, mr.Exists("counter"))

	n, err = c.IncrWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFixedWindowAllow(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := c.FixedWindowAllow(ctx, "user-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i+1)
	}
	ok, err := c.FixedWindowAllow(ctx, "user-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// other scopes have their own counters
	ok, err = c.FixedWindowAllow(ctx, "user-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute)
	ok, err = c.FixedWindowAllow(ctx, "user-1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", mustGet(t, mr, c.RateLimitKey("user-1")))
}

func TestMarkers(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	key := c.UsedLinkKey("jti-1")
	assert.Equal(t, "shoes:used_link:jti-1", key)

	found, err := c.HasMarker(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetMarker(ctx, key, time.Hour))
	found, err = c.HasMarker(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(time.Hour)
	found, err = c.HasMarker(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNilClientErrors(t *testing.T) {
	var c *Client
	ctx := context.Background()
	_, err := c.IncrWithTTL(ctx, "k", time.Second)
	assert.Error(t, err)
	assert.Error(t, c.SetMarker(ctx, "k", time.Second))
	_, err = c.HasMarker(ctx, "k")
	assert.Error(t, err)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
