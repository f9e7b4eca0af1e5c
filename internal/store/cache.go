package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/canonical"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/redis"
)

const (
	priceChannel  = "channel:prices"
	gainersKey    = "movers:gainers"
	losersKey     = "movers:losers"
	topMoversSize = 20
)

// CacheStore is the hot read tier. Everything here is reconstructible from
// the relational tier, so every write is best-effort with a TTL.
type CacheStore struct {
	client *redis.Client
	cache  *redis.Cache
}

func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{
		client: client,
		cache:  redis.NewCache(client, "stockpulse"),
	}
}

// Enabled reports whether a Redis backend is configured at all.
func (c *CacheStore) Enabled() bool {
	return c.client.Enabled()
}

// priceUpdate is the payload published on channel:prices and cached under
// the per-symbol price key.
type priceUpdate struct {
	Symbol        string    `json:"symbol"`
	Close         *float64  `json:"close,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
	Volume        *float64  `json:"volume,omitempty"`
	AsOf          time.Time `json:"as_of"`
}

// SaveRecord caches a canonical record: JSON price blob, per-field HASH for
// partial reads, mover ZSETs, and a pub/sub notification for live clients.
func (c *CacheStore) SaveRecord(ctx context.Context, rec *canonical.Record) error {
	if !c.client.Enabled() {
		return nil
	}

	update := priceUpdate{
		Symbol: rec.Symbol,
		Close:  recFloat(rec, "close"),
		Volume: recFloat(rec, "volume"),
		AsOf:   rec.AsOf,
	}
	update.ChangePercent = recFloat(rec, "price_change_percent")

	if err := c.cache.Set(ctx, redis.PriceKey(rec.Symbol), update, redis.TTLPrice); err != nil {
		return fmt.Errorf("cache price for %s: %w", rec.Symbol, err)
	}

	if err := c.saveHash(ctx, rec); err != nil {
		return err
	}
	if update.ChangePercent != nil {
		if err := c.updateMovers(ctx, rec.Symbol, *update.ChangePercent); err != nil {
			return err
		}
	}
	return c.publish(ctx, update)
}

// saveHash writes every scalar field into a per-symbol HASH so clients can
// read single fields without deserializing the whole record.
func (c *CacheStore) saveHash(ctx context.Context, rec *canonical.Record) error {
	fields := make(map[string]interface{}, len(rec.Fields))
	for name, value := range rec.Fields {
		switch v := value.(type) {
		case float64:
			fields[name] = v
		case string:
			fields[name] = v
		case bool:
			fields[name] = v
		}
	}
	if len(fields) == 0 {
		return nil
	}

	key := redis.StockHashKey(rec.Symbol)
	pipe := c.client.Redis().Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, redis.TTLDefault)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache hash for %s: %w", rec.Symbol, err)
	}
	return nil
}

// updateMovers maintains the gainer/loser leaderboards. Both ZSETs hold the
// full universe scored by day change; reads slice the right end.
func (c *CacheStore) updateMovers(ctx context.Context, symbol string, changePct float64) error {
	pipe := c.client.Redis().Pipeline()
	pipe.ZAdd(ctx, gainersKey, goredis.Z{Score: changePct, Member: symbol})
	pipe.ZAdd(ctx, losersKey, goredis.Z{Score: changePct, Member: symbol})
	pipe.Expire(ctx, gainersKey, redis.TTLPrice*2)
	pipe.Expire(ctx, losersKey, redis.TTLPrice*2)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update movers for %s: %w", symbol, err)
	}
	return nil
}

func (c *CacheStore) publish(ctx context.Context, update priceUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if err := c.client.Redis().Publish(ctx, priceChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish price update: %w", err)
	}
	return nil
}

// Mover is one leaderboard entry.
type Mover struct {
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"change_percent"`
}

// TopGainers returns the best day changes, highest first.
func (c *CacheStore) TopGainers(ctx context.Context, n int64) ([]Mover, error) {
	if !c.client.Enabled() {
		return nil, nil
	}
	if n <= 0 || n > topMoversSize {
		n = topMoversSize
	}
	zs, err := c.client.Redis().ZRevRangeWithScores(ctx, gainersKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	return toMovers(zs), nil
}

// TopLosers returns the worst day changes, lowest first.
func (c *CacheStore) TopLosers(ctx context.Context, n int64) ([]Mover, error) {
	if !c.client.Enabled() {
		return nil, nil
	}
	if n <= 0 || n > topMoversSize {
		n = topMoversSize
	}
	zs, err := c.client.Redis().ZRangeWithScores(ctx, losersKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	return toMovers(zs), nil
}

func toMovers(zs []goredis.Z) []Mover {
	movers := make([]Mover, 0, len(zs))
	for _, z := range zs {
		symbol, ok := z.Member.(string)
		if !ok {
			continue
		}
		movers = append(movers, Mover{Symbol: symbol, ChangePercent: z.Score})
	}
	return movers
}

// GetPrice reads the cached price blob; miss is (nil, nil).
func (c *CacheStore) GetPrice(ctx context.Context, symbol string) (map[string]interface{}, error) {
	if !c.client.Enabled() {
		return nil, nil
	}
	var out map[string]interface{}
	found, err := c.cache.Get(ctx, redis.PriceKey(symbol), &out)
	if err != nil || !found {
		return nil, err
	}
	return out, nil
}

// GetAnalysis reads a cached scoring result; miss is (false, nil).
func (c *CacheStore) GetAnalysis(ctx context.Context, symbol string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}
	return c.cache.Get(ctx, redis.AnalysisKey(symbol), dest)
}

// SetAnalysis caches a scoring result for the analysis TTL.
func (c *CacheStore) SetAnalysis(ctx context.Context, symbol string, value interface{}) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.cache.Set(ctx, redis.AnalysisKey(symbol), value, redis.TTLAnalysis)
}

// SetPipelineStatus caches the orchestrator status blob.
func (c *CacheStore) SetPipelineStatus(ctx context.Context, status interface{}) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.cache.Set(ctx, redis.PipelineStatusKey(), status, redis.TTLPipeline)
}

// Subscribe opens a pub/sub subscription on the live price channel.
func (c *CacheStore) Subscribe(ctx context.Context) *goredis.PubSub {
	return c.client.Redis().Subscribe(ctx, priceChannel)
}

// Ping verifies connectivity for the health endpoint.
func (c *CacheStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func recFloat(rec *canonical.Record, name string) *float64 {
	if v, ok := rec.Float(name); ok {
		return &v
	}
	return nil
}
