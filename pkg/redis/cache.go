package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides typed caching utilities on top of Client.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value. The boolean reports whether the key was found.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		// Key not found is not an error
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// Tier TTLs. Live quotes churn fastest, computed analysis is allowed to lag,
// pipeline status must stay near-real-time for the dashboard.
const (
	TTLPrice    = 60 * time.Second
	TTLAnalysis = 300 * time.Second
	TTLPipeline = 30 * time.Second
	TTLNews     = 180 * time.Second
	TTLDefault  = 120 * time.Second
)

// Common cache key generators
func PriceKey(symbol string) string {
	return fmt.Sprintf("price:%s", symbol)
}

func AnalysisKey(symbol string) string {
	return fmt.Sprintf("analysis:%s", symbol)
}

func StockHashKey(symbol string) string {
	return fmt.Sprintf("stock:%s", symbol)
}

func PipelineStatusKey() string {
	return "pipeline:status"
}
