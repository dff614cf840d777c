package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shoe_market_backend/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyNamespace    = "shoes"
	rateLimitPrefix = "rate_limit"
	usedLinkPrefix  = "used_link"
)

// Client wraps the redis connection helpers needed by the API.
type Client struct {
	raw *redis.Client
}

// New connects to REDIS_URL and verifies connectivity. It returns (nil, nil)
// when Redis is not configured; callers treat a nil client as "disabled".
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Info("REDIS_URL not set, rate limiting disabled and used links kept in memory")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Redis connection established", zap.String("addr", opts.Addr))
	return &Client{raw: raw}, nil
}

// IncrWithTTL increments and ensures the key has the supplied TTL on the first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c == nil || c.raw == nil {
		return 0, errors.New("redis client not initialized")
	}
	count, err := c.raw.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 && count == 1 {
		if _, expErr := c.raw.Expire(ctx, key, ttl).Result(); expErr != nil {
			return count, expErr
		}
	}
	return count, nil
}

// FixedWindowAllow applies a simple fixed-window rate limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, error) {
	count, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, err
	}
	return count <= limit, nil
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(scope string) string {
	return strings.Join([]string{keyNamespace, rateLimitPrefix, scope}, ":")
}

// SetMarker stores a presence-only key that expires after ttl.
func (c *Client) SetMarker(ctx context.Context, key string, ttl time.Duration) error {
	if c == nil || c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Set(ctx, key, 1, ttl).Err()
}

// HasMarker reports whether key exists.
func (c *Client) HasMarker(ctx context.Context, key string) (bool, error) {
	if c == nil || c.raw == nil {
		return false, errors.New("redis client not initialized")
	}
	n, err := c.raw.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UsedLinkKey returns a namespaced key for a redeemed single-use link.
func (c *Client) UsedLinkKey(linkID string) string {
	return strings.Join([]string{keyNamespace, usedLinkPrefix, linkID}, ":")
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
