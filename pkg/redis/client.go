package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
)

// Client wraps go-redis for the cache tier. The tier is optional: with
// REDIS_ENABLED=false every consumer gets a disabled client and must degrade
// gracefully rather than fail.
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New connects to Redis, or returns a disabled client when the tier is
// switched off in config.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Enabled reports whether the cache tier is backed by a live connection.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis exposes the underlying client for pipelines, zsets and pub/sub.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Ping checks connectivity. Returns nil when the cache tier is disabled,
// since a disabled cache is not a failure.
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
