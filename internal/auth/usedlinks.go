package auth

import (
	"context"
	"time"

	"shoe_market_backend/internal/config"
	platformredis "shoe_market_backend/internal/platform/redis"

	"github.com/patrickmn/go-cache"
)

// UsedLinkStore records the IDs of single-use links that were already
// redeemed. An entry only has to outlive the link it belongs to.
type UsedLinkStore interface {
	MarkUsed(ctx context.Context, linkID string, until time.Time) error
	WasUsed(ctx context.Context, linkID string) (bool, error)
}

// ProvideUsedLinkStore shares redeemed links through redis when it is
// configured and falls back to process memory otherwise.
func ProvideUsedLinkStore(cfg *config.Config, rdb *platformredis.Client) UsedLinkStore {
	if rdb != nil {
		return &redisUsedLinks{rdb: rdb}
	}
	return NewMemoryUsedLinks(cfg.EmergencyLinkTTL)
}

// MemoryUsedLinks keeps redeemed link IDs in a go-cache. Entries are lost
// on restart, which only re-opens links whose account is already deleted.
type MemoryUsedLinks struct {
	entries *cache.Cache
}

// NewMemoryUsedLinks creates a store whose sweep runs every linkTTL/4,
// bounded to [1m, 1h].
func NewMemoryUsedLinks(linkTTL time.Duration) *MemoryUsedLinks {
	sweep := linkTTL / 4
	switch {
	case sweep < time.Minute:
		sweep = time.Minute
	case sweep > time.Hour:
		sweep = time.Hour
	}
	return &MemoryUsedLinks{entries: cache.New(cache.NoExpiration, sweep)}
}

func (m *MemoryUsedLinks) MarkUsed(_ context.Context, linkID string, until time.Time) error {
	if ttl := time.Until(until); ttl > 0 {
		m.entries.Set(linkID, struct{}{}, ttl)
	}
	return nil
}

func (m *MemoryUsedLinks) WasUsed(_ context.Context, linkID string) (bool, error) {
	_, ok := m.entries.Get(linkID)
	return ok, nil
}

type redisUsedLinks struct {
	rdb *platformredis.Client
}

func (r *redisUsedLinks) MarkUsed(ctx context.Context, linkID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.SetMarker(ctx, r.rdb.UsedLinkKey(linkID), ttl)
}

func (r *redisUsedLinks) WasUsed(ctx context.Context, linkID string) (bool, error) {
	return r.rdb.HasMarker(ctx, r.rdb.UsedLinkKey(linkID))
}
