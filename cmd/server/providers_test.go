package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *countingMailer) Send(_ context.Context, _ notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

func (m *countingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

func TestProvideRedis_CleanupClosesPool(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, cleanup, err := provideRedis(ctx, &config.Config{RedisURL: "redis://" + mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.SetMarker(ctx, "k", time.Minute))

	cleanup()
	_, err = client.HasMarker(ctx, "k")
	assert.Error(t, err, "pool is closed")
}

func TestProvideRedis_DisabledCleanupIsSafe(t *testing.T) {
	client, cleanup, err := provideRedis(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.NotPanics(t, cleanup)
}

func TestProvideDispatcher_CleanupDrainsQueue(t *testing.T) {
	mailer := &countingMailer{}
	cfg := &config.Config{EmailWorkers: 1, EmailQueueSize: 5, EmailSendTimeout: time.Second}
	d, cleanup := provideDispatcher(cfg, mailer, nil, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		require.True(t, d.Enqueue(notification.Job{Kind: notification.KindWelcome, Message: notification.Message{To: "a@example.com"}}))
	}
	cleanup()
	assert.Equal(t, 3, mailer.count())
	assert.False(t, d.Enqueue(notification.Job{Kind: notification.KindWelcome, Message: notification.Message{To: "late@example.com"}}))
}

func TestProvideDispatcher_CleanupAfterShutdown(t *testing.T) {
	cfg := &config.Config{EmailWorkers: 1, EmailQueueSize: 1, EmailSendTimeout: time.Second}
	d, cleanup := provideDispatcher(cfg, &countingMailer{}, nil, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
	assert.NotPanics(t, cleanup)
}
