package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a PriceCache that has no entry for a symbol.
var ErrCacheMiss = errors.New("feed: cache miss")

// PriceCache stores the last fetched price per symbol with its fetch time.
type PriceCache interface {
	Get(ctx context.Context, symbol string) (float64, time.Time, error)
	Set(ctx context.Context, symbol string, price float64, ts time.Time) error
}

// CachedFeed serves prices from a PriceCache while they are younger than
// ttl and falls through to the wrapped Feed otherwise. Failed fetches are
// never cached so the next poll retries upstream.
type CachedFeed struct {
	next  Feed
	cache PriceCache
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedFeed wraps next with cache.
func NewCachedFeed(next Feed, cache PriceCache, ttl time.Duration) *CachedFeed {
	return &CachedFeed{
		next:  next,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *CachedFeed) Price(ctx context.Context, symbol string) (float64, error) {
	price, ts, err := c.cache.Get(ctx, symbol)
	if err == nil && c.now().Sub(ts) < c.ttl {
		return price, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		slog.Warn("price cache read failed", "symbol", symbol, "err", err)
	}

	price, err = c.next.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Set(ctx, symbol, price, c.now()); err != nil {
		slog.Warn("price cache write failed", "symbol", symbol, "err", err)
	}
	return price, nil
}

// --- In-process cache ---

type cachedPrice struct {
	price float64
	ts    time.Time
}

// MemoryPriceCache is a PriceCache for single-instance deployments.
type MemoryPriceCache struct {
	mu      sync.RWMutex
	entries map[string]cachedPrice
}

// NewMemoryPriceCache creates an empty in-process cache.
func NewMemoryPriceCache() *MemoryPriceCache {
	return &MemoryPriceCache{entries: make(map[string]cachedPrice)}
}

func (m *MemoryPriceCache) Get(_ context.Context, symbol string) (float64, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[symbol]
	if !ok {
		return 0, time.Time{}, ErrCacheMiss
	}
	return e.price, e.ts, nil
}

func (m *MemoryPriceCache) Set(_ context.Context, symbol string, price float64, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[symbol] = cachedPrice{price: price, ts: ts}
	return nil
}

// --- Redis cache ---

// RedisPriceCache stores each price as a hash at "price:{symbol}" with
// fields "price" and "ts" (Unix nanoseconds). Keys expire after keyTTL so
// stale symbols do not accumulate.
type RedisPriceCache struct {
	rdb    *redis.Client
	keyTTL time.Duration
}

// NewRedisPriceCache creates a Redis-backed price cache.
func NewRedisPriceCache(rdb *redis.Client, keyTTL time.Duration) *RedisPriceCache {
	return &RedisPriceCache{rdb: rdb, keyTTL: keyTTL}
}

func priceKey(symbol string) string { return "price:" + symbol }

func (r *RedisPriceCache) Get(ctx context.Context, symbol string) (float64, time.Time, error) {
	vals, err := r.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, ErrCacheMiss
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, ErrCacheMiss
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
	}
	return price, time.Unix(0, tsNano), nil
}

func (r *RedisPriceCache) Set(ctx context.Context, symbol string, price float64, ts time.Time) error {
	key := priceKey(symbol)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	})
	if r.keyTTL > 0 {
		pipe.Expire(ctx, key, r.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

var (
	_ PriceCache = (*MemoryPriceCache)(nil)
	_ PriceCache = (*RedisPriceCache)(nil)
	_ Feed       = (*CachedFeed)(nil)
)
