// Package fetchcache memoizes whole fallback-chain results for a TTL.
// Historical ranges are immutable upstream, so identical requests within
// the TTL are served from memory, and concurrent identical requests are
// collapsed into a single upstream fetch.
package fetchcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"findata/internal/market"
)

// Fetcher is the slice of the fallback orchestrator the cache decorates.
type Fetcher interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe, start, end string) ([]market.Candle, string, error)
	FetchTicks(ctx context.Context, symbol, start, end string) ([]market.Tick, string, error)
}

type ohlcvResult struct {
	candles  []market.Candle
	provider string
}

type tickResult struct {
	ticks    []market.Tick
	provider string
}

type entry struct {
	expiresAt time.Time
	value     any
}

// Cache is a TTL cache over a Fetcher. Failures are never cached.
type Cache struct {
	F          Fetcher
	TTL        time.Duration
	MaxEntries int

	group singleflight.Group
	mu    sync.RWMutex
	items map[string]entry
}

func New(f Fetcher, ttl time.Duration, maxEntries int) *Cache {
	return &Cache{F: f, TTL: ttl, MaxEntries: maxEntries, items: make(map[string]entry)}
}

func (c *Cache) FetchOHLCV(ctx context.Context, symbol, timeframe, start, end string) ([]market.Candle, string, error) {
	if c.TTL <= 0 {
		return c.F.FetchOHLCV(ctx, symbol, timeframe, start, end)
	}
	key := strings.Join([]string{"ohlcv", symbol, timeframe, start, end}, "|")
	if e, ok := c.get(key); ok {
		r := e.(ohlcvResult)
		return r.candles, r.provider, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		candles, name, err := c.F.FetchOHLCV(ctx, symbol, timeframe, start, end)
		if err != nil {
			return nil, err
		}
		r := ohlcvResult{candles: candles, provider: name}
		c.put(key, r)
		return r, nil
	})
	if err != nil {
		return nil, "", err
	}
	r := v.(ohlcvResult)
	return r.candles, r.provider, nil
}

func (c *Cache) FetchTicks(ctx context.Context, symbol, start, end string) ([]market.Tick, string, error) {
	if c.TTL <= 0 {
		return c.F.FetchTicks(ctx, symbol, start, end)
	}
	key := strings.Join([]string{"tick", symbol, start, end}, "|")
	if e, ok := c.get(key); ok {
		r := e.(tickResult)
		return r.ticks, r.provider, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		ticks, name, err := c.F.FetchTicks(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		r := tickResult{ticks: ticks, provider: name}
		c.put(key, r)
		return r, nil
	})
	if err != nil {
		return nil, "", err
	}
	r := v.(tickResult)
	return r.ticks, r.provider, nil
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) put(key string, value any) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{expiresAt: now.Add(c.TTL), value: value}
	if c.MaxEntries <= 0 || len(c.items) <= c.MaxEntries {
		return
	}
	// best-effort cap: drop expired entries first, then arbitrary ones
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
		if len(c.items) <= c.MaxEntries {
			return
		}
	}
	for k := range c.items {
		if len(c.items) <= c.MaxEntries {
			return
		}
		delete(c.items, k)
	}
}
