package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/provider/ratelimit"
)

type stubAdapter struct{ calls int }

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) FetchOHLCV(context.Context, string, string, string, string) ([]market.Candle, error) {
	s.calls++
	return []market.Candle{{Open: 1}}, nil
}

func (s *stubAdapter) FetchTicks(context.Context, string, string, string) ([]market.Tick, error) {
	s.calls++
	return []market.Tick{{Bid: 1}}, nil
}

func TestWrapDisabledReturnsUnderlying(t *testing.T) {
	s := &stubAdapter{}
	assert.Equal(t, provider.Adapter(s), ratelimit.Wrap(s, 0, 1))
}

func TestBurstPassesWithoutBlocking(t *testing.T) {
	s := &stubAdapter{}
	a := ratelimit.Wrap(s, 60, 2)

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := a.FetchOHLCV(context.Background(), "EURUSD", "15min", "a", "b")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, 2, s.calls)
}

func TestExhaustedBucketHonorsCancellation(t *testing.T) {
	s := &stubAdapter{}
	a := ratelimit.Wrap(s, 1, 1) // one token, refill every 60s

	_, err := a.FetchTicks(context.Background(), "EURUSD", "a", "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = a.FetchTicks(ctx, "EURUSD", "a", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, s.calls)
}
