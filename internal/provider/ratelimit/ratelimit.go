// Package ratelimit decorates an adapter with a token bucket so paginated
// providers cannot exceed their public rate limits. The bucket gates whole
// fetches, not individual pages; page-level pacing belongs to the adapter.
package ratelimit

import (
	"context"

	"findata/internal/market"
	"findata/internal/provider"
)

// Adapter wraps a provider.Adapter and gates every call on TB.
type Adapter struct {
	P  provider.Adapter
	TB *TokenBucket
}

// Wrap builds a rate-limited view of p allowing rpm requests per minute
// with the given burst. rpm <= 0 disables limiting.
func Wrap(p provider.Adapter, rpm, burst int) provider.Adapter {
	if rpm <= 0 {
		return p
	}
	return &Adapter{P: p, TB: NewTokenBucket(float64(rpm)/60.0, burst)}
}

func (a *Adapter) Name() string { return a.P.Name() }

func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe, start, end string) ([]market.Candle, error) {
	if a.TB != nil {
		if err := a.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return a.P.FetchOHLCV(ctx, symbol, timeframe, start, end)
}

func (a *Adapter) FetchTicks(ctx context.Context, symbol, start, end string) ([]market.Tick, error) {
	if a.TB != nil {
		if err := a.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return a.P.FetchTicks(ctx, symbol, start, end)
}
