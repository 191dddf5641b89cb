// Package dukascopy implements the historical-feed adapter against the
// public Dukascopy datafeed. It is quote-oriented: ticks are true two-sided
// quotes with sizes, so no synthesis is involved, and OHLCV is served from
// pre-built candle files aggregated client-side to the requested timeframe.
package dukascopy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"findata/internal/httpx"
	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/timeframe"
	"findata/internal/timeparse"
)

const DefaultBaseURL = "https://datafeed.dukascopy.com/datafeed"

type Config struct {
	Name    string
	BaseURL string
}

type Adapter struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Dukascopy"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Adapter{cfg: cfg, client: hc}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, tfToken, startToken, endToken string) ([]market.Candle, error) {
	sym := market.NormalizeSymbol(symbol)
	unit, count, err := timeframe.Parse(tfToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}
	start, end, err := parseRange(startToken, endToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}

	var base []market.Candle
	switch unit {
	case timeframe.UnitSec:
		// No pre-built second bars upstream; bucket the tick stream.
		ticks, err := a.fetchTickRange(ctx, sym, start, end)
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		base = candlesFromTicks(ticks, time.Duration(count)*time.Second)
		if len(base) == 0 {
			return nil, provider.Errf(a.cfg.Name, "%w: no %s data for %s", provider.ErrNoData, tfToken, sym)
		}
		return base, nil
	case timeframe.UnitMin, timeframe.UnitHour:
		base, err = a.fetchCandleFiles(ctx, sym, unit, start, end)
	default:
		// day, week, month and year all aggregate up from daily bars
		base, err = a.fetchCandleFiles(ctx, sym, timeframe.UnitDay, start, end)
	}
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}

	out := aggregate(base, bucketFunc(unit, count))
	if len(out) == 0 {
		return nil, provider.Errf(a.cfg.Name, "%w: no %s data for %s", provider.ErrNoData, tfToken, sym)
	}
	return out, nil
}

func (a *Adapter) FetchTicks(ctx context.Context, symbol, startToken, endToken string) ([]market.Tick, error) {
	sym := market.NormalizeSymbol(symbol)
	start, end, err := parseRange(startToken, endToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}
	ticks, err := a.fetchTickRange(ctx, sym, start, end)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}
	if len(ticks) == 0 {
		return nil, provider.Errf(a.cfg.Name, "%w: no tick data for %s", provider.ErrNoData, sym)
	}
	return ticks, nil
}

func parseRange(startToken, endToken string) (time.Time, time.Time, error) {
	start, err := timeparse.Parse(startToken)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := timeparse.Parse(endToken)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (a *Adapter) fetchTickRange(ctx context.Context, sym string, start, end time.Time) ([]market.Tick, error) {
	scale := priceScale(sym)
	var out []market.Tick
	for hr := start.UTC().Truncate(time.Hour); hr.Before(end); hr = hr.Add(time.Hour) {
		raw, found, err := a.fetchBI5(ctx, tickURL(a.cfg.BaseURL, sym, hr))
		if err != nil {
			return nil, err
		}
		if !found {
			// hours with no trading (weekends, holidays) are simply absent
			continue
		}
		for _, tk := range decodeTicks(raw, hr, scale) {
			if tk.Time.Before(start) || tk.Time.After(end) {
				continue
			}
			out = append(out, tk)
		}
	}
	return out, nil
}

// fetchCandleFiles pulls every base-granularity candle file overlapping
// [start, end] and returns the bars inside the range, ascending.
func (a *Adapter) fetchCandleFiles(ctx context.Context, sym string, gran timeframe.Unit, start, end time.Time) ([]market.Candle, error) {
	scale := priceScale(sym)
	var out []market.Candle

	var period time.Time
	next := func(t time.Time) time.Time { return t }
	urlFor := func(t time.Time) string { return "" }
	switch gran {
	case timeframe.UnitMin:
		period = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		urlFor = func(t time.Time) string { return minCandleURL(a.cfg.BaseURL, sym, t) }
	case timeframe.UnitHour:
		period = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		next = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		urlFor = func(t time.Time) string { return hourCandleURL(a.cfg.BaseURL, sym, t) }
	case timeframe.UnitDay:
		period = time.Date(start.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		next = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
		urlFor = func(t time.Time) string { return dayCandleURL(a.cfg.BaseURL, sym, t) }
	default:
		return nil, fmt.Errorf("no candle files for %v granularity", gran)
	}

	for ; period.Before(end); period = next(period) {
		raw, found, err := a.fetchBI5(ctx, urlFor(period))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		for _, c := range decodeCandles(raw, period, scale) {
			if c.Time.Before(start) || c.Time.After(end) {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// fetchBI5 downloads and decompresses one datafeed file. A 404 means the
// period has no data and is reported as found=false, not an error.
func (a *Adapter) fetchBI5(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, err
	}
	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("GET %s -> %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	flat, err := decompress(body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", url, err)
	}
	return flat, true, nil
}

// bucketFunc maps a bar time onto the start of its aggregation bucket.
// Fixed-length units truncate against the epoch; month and year buckets
// follow the calendar.
func bucketFunc(unit timeframe.Unit, count int) func(time.Time) time.Time {
	if d, ok := unit.FixedDuration(); ok {
		step := d * time.Duration(count)
		return func(t time.Time) time.Time { return t.Truncate(step) }
	}
	switch unit {
	case timeframe.UnitMonth:
		return func(t time.Time) time.Time {
			m := (int(t.Month()) - 1) / count * count
			return time.Date(t.Year(), time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
		}
	default: // year
		return func(t time.Time) time.Time {
			return time.Date(t.Year()-t.Year()%count, 1, 1, 0, 0, 0, 0, time.UTC)
		}
	}
}

// aggregate merges ascending base bars into buckets. Also collapses any
// duplicate timestamps the upstream files may contain.
func aggregate(base []market.Candle, bucket func(time.Time) time.Time) []market.Candle {
	out := make([]market.Candle, 0, len(base))
	for _, c := range base {
		b := bucket(c.Time)
		if n := len(out); n > 0 && out[n-1].Time.Equal(b) {
			last := &out[n-1]
			if c.High > last.High {
				last.High = c.High
			}
			if c.Low < last.Low {
				last.Low = c.Low
			}
			last.Close = c.Close
			last.Volume += c.Volume
			continue
		}
		out = append(out, market.Candle{
			Time:   b,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return out
}

// candlesFromTicks buckets the bid side of a quote stream into bars.
func candlesFromTicks(ticks []market.Tick, step time.Duration) []market.Candle {
	var out []market.Candle
	for _, tk := range ticks {
		b := tk.Time.Truncate(step)
		if n := len(out); n > 0 && out[n-1].Time.Equal(b) {
			last := &out[n-1]
			if tk.Bid > last.High {
				last.High = tk.Bid
			}
			if tk.Bid < last.Low {
				last.Low = tk.Bid
			}
			last.Close = tk.Bid
			last.Volume += tk.BidVolume
			continue
		}
		out = append(out, market.Candle{
			Time:   b,
			Open:   tk.Bid,
			High:   tk.Bid,
			Low:    tk.Bid,
			Close:  tk.Bid,
			Volume: tk.BidVolume,
		})
	}
	return out
}
