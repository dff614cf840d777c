package auth

import (
	"context"
	"testing"
	"time"

	"shoe_market_backend/internal/config"
	platformredis "shoe_market_backend/internal/platform/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryUsedLinks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUsedLinks(24 * time.Hour)

	used, err := store.WasUsed(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, store.MarkUsed(ctx, "abc", time.Now().Add(time.Hour)))
	used, err = store.WasUsed(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, used)

	// already expired links are not worth remembering
	require.NoError(t, store.MarkUsed(ctx, "old", time.Now().Add(-time.Minute)))
	used, err = store.WasUsed(ctx, "old")
	require.NoError(t, err)
	assert.False(t, used)
}

func TestProvideUsedLinkStore_MemoryWithoutRedis(t *testing.T) {
	store := ProvideUsedLinkStore(&config.Config{EmergencyLinkTTL: time.Hour}, nil)
	assert.IsType(t, &MemoryUsedLinks{}, store)
}

func newRedisUsedLinks(t *testing.T) (*platformredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := platformredis.New(context.Background(), &config.Config{RedisURL: "redis://" + mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestRedisUsedLinks(t *testing.T) {
	rdb, mr := newRedisUsedLinks(t)
	ctx := context.Background()
	store := ProvideUsedLinkStore(&config.Config{EmergencyLinkTTL: time.Hour}, rdb)
	assert.IsType(t, &redisUsedLinks{}, store)

	used, err := store.WasUsed(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, store.MarkUsed(ctx, "abc", time.Now().Add(time.Hour)))
	used, err = store.WasUsed(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, used)

	ttl := mr.TTL(rdb.UsedLinkKey("abc"))
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	// the mark lives exactly as long as the link it blocks
	mr.FastForward(time.Hour)
	used, err = store.WasUsed(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, store.MarkUsed(ctx, "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(rdb.UsedLinkKey("old")))
}

func TestLinkSigner_SingleUseAcrossRedis(t *testing.T) {
	rdb, _ := newRedisUsedLinks(t)
	ctx := context.Background()
	cfg := &config.Config{LinkSigningSecret: testSecret, EmergencyLinkTTL: 24 * time.Hour}

	// two signers sharing one redis behave like two API replicas
	first, err := NewLinkSigner(cfg, ProvideUsedLinkStore(cfg, rdb))
	require.NoError(t, err)
	second, err := NewLinkSigner(cfg, ProvideUsedLinkStore(cfg, rdb))
	require.NoError(t, err)

	token, err := first.Sign(uuid.New())
	require.NoError(t, err)
	claims, err := first.Verify(ctx, token)
	require.NoError(t, err)
	require.NoError(t, first.Consume(ctx, claims))

	_, err = first.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrLinkInvalid)
	_, err = second.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrLinkInvalid)
}

func TestRedisUsedLinks_ServerDown(t *testing.T) {
	rdb, mr := newRedisUsedLinks(t)
	store := ProvideUsedLinkStore(&config.Config{}, rdb)
	mr.Close()

	_, err := store.WasUsed(context.Background(), "abc")
	assert.Error(t, err)
}
