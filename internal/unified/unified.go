// Package unified runs the provider fallback chain. Providers are tried in
// a fixed order (historical feed, then exchange, then broker) and the first
// non-empty result wins. Malformed requests fail before any provider is
// contacted, so a typo never burns through the chain.
package unified

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/timeframe"
	"findata/internal/timeparse"
)

// Options wires the chain together. A nil adapter slot means that provider
// is not configured; the broker additionally requires credentials.
type Options struct {
	HistoricalFeed provider.Adapter
	Exchange       provider.Adapter
	Broker         provider.Adapter
	Credentials    provider.Credentials
	Logger         *slog.Logger
}

// Attempt records one provider's failure while walking the chain.
type Attempt struct {
	Provider string
	Err      error
}

// ExhaustedError is returned when every provider in the chain either
// failed or was skipped. It keeps the per-provider reasons so callers can
// report exactly what happened at each step.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("all providers failed")
	for i, a := range e.Attempts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(a.Provider)
		b.WriteString(": ")
		b.WriteString(a.Err.Error())
	}
	return b.String()
}

type link struct {
	kind    provider.Kind
	adapter provider.Adapter
	// skip, when non-nil, records why this link is never attempted
	skip error
}

func (l link) name() string {
	if l.adapter != nil {
		return l.adapter.Name()
	}
	return l.kind.String()
}

// Fetcher is the fallback orchestrator.
type Fetcher struct {
	chain []link
	log   *slog.Logger
}

func New(opts Options) *Fetcher {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	chain := []link{
		{kind: provider.Dukascopy, adapter: opts.HistoricalFeed},
		{kind: provider.Binance, adapter: opts.Exchange},
		{kind: provider.Alpaca, adapter: opts.Broker},
	}
	for i := range chain {
		l := &chain[i]
		if l.adapter == nil {
			l.skip = fmt.Errorf("%w: not configured", provider.ErrUnavailable)
			continue
		}
		if l.kind == provider.Alpaca && !opts.Credentials.Valid() {
			l.skip = fmt.Errorf("%w: skipped, no credentials", provider.ErrUnavailable)
		}
	}
	return &Fetcher{chain: chain, log: log}
}

// FetchOHLCV walks the chain for candles. It returns the winning
// provider's name alongside the data.
func (f *Fetcher) FetchOHLCV(ctx context.Context, symbol, tfToken, startToken, endToken string) ([]market.Candle, string, error) {
	if _, _, err := timeframe.Parse(tfToken); err != nil {
		return nil, "", err
	}
	if err := validateRange(startToken, endToken); err != nil {
		return nil, "", err
	}

	var attempts []Attempt
	for _, l := range f.chain {
		if l.skip != nil {
			f.log.Info("provider skipped", "provider", l.name(), "reason", l.skip)
			attempts = append(attempts, Attempt{Provider: l.name(), Err: l.skip})
			continue
		}
		f.log.Info("trying provider", "provider", l.name(), "symbol", symbol, "timeframe", tfToken)
		candles, err := l.adapter.FetchOHLCV(ctx, symbol, tfToken, startToken, endToken)
		if err == nil && len(candles) == 0 {
			err = provider.Errf(l.name(), "%w: empty result", provider.ErrNoData)
		}
		if err != nil {
			f.log.Warn("provider failed", "provider", l.name(), "err", err)
			attempts = append(attempts, Attempt{Provider: l.name(), Err: err})
			continue
		}
		f.log.Info("provider succeeded", "provider", l.name(), "candles", len(candles))
		return candles, l.name(), nil
	}
	return nil, "", &ExhaustedError{Attempts: attempts}
}

// FetchTicks walks the chain for sub-bar data.
func (f *Fetcher) FetchTicks(ctx context.Context, symbol, startToken, endToken string) ([]market.Tick, string, error) {
	if err := validateRange(startToken, endToken); err != nil {
		return nil, "", err
	}

	var attempts []Attempt
	for _, l := range f.chain {
		if l.skip != nil {
			f.log.Info("provider skipped", "provider", l.name(), "reason", l.skip)
			attempts = append(attempts, Attempt{Provider: l.name(), Err: l.skip})
			continue
		}
		f.log.Info("trying provider", "provider", l.name(), "symbol", symbol)
		ticks, err := l.adapter.FetchTicks(ctx, symbol, startToken, endToken)
		if err == nil && len(ticks) == 0 {
			err = provider.Errf(l.name(), "%w: empty result", provider.ErrNoData)
		}
		if err != nil {
			f.log.Warn("provider failed", "provider", l.name(), "err", err)
			attempts = append(attempts, Attempt{Provider: l.name(), Err: err})
			continue
		}
		f.log.Info("provider succeeded", "provider", l.name(), "ticks", len(ticks))
		return ticks, l.name(), nil
	}
	return nil, "", &ExhaustedError{Attempts: attempts}
}

func validateRange(startToken, endToken string) error {
	if _, err := timeparse.Parse(startToken); err != nil {
		return err
	}
	if _, err := timeparse.Parse(endToken); err != nil {
		return err
	}
	return nil
}
