// Package binance implements the exchange adapter on top of the go-binance
// SDK. Both klines and trades are served by row-limited endpoints, so every
// fetch is a cursor-driven pagination loop; raw tick records are individual
// trades and go through the quote synthesizer before leaving the adapter.
package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"findata/internal/httpx"
	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/timeframe"
	"findata/internal/timeparse"
)

const (
	// DefaultPageSize matches the exchange's maximum rows per request.
	DefaultPageSize = 1000
	// DefaultMaxPages caps the pagination loop so a misbehaving upstream
	// that keeps returning full pages cannot spin forever.
	DefaultMaxPages = 500
)

type Config struct {
	Name     string
	BaseURL  string // override for tests; empty means the public endpoint
	PageSize int
	MaxPages int
}

type Adapter struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Binance"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Adapter{cfg: cfg, client: hc}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// newClient builds a fresh SDK client scoped to one fetch. Market data
// endpoints are public, so no keys are passed.
func (a *Adapter) newClient() *gobinance.Client {
	cli := gobinance.NewClient("", "")
	if a.cfg.BaseURL != "" {
		cli.BaseURL = a.cfg.BaseURL
	}
	if a.client != nil {
		cli.HTTPClient = a.client.HTTP
	}
	return cli
}

func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, tfToken, startToken, endToken string) ([]market.Candle, error) {
	sym := exchangeSymbol(symbol)
	interval, err := timeframe.Translate(tfToken, provider.Binance)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}
	startMs, endMs, err := parseRangeMillis(startToken, endToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}

	cli := a.newClient()
	var out []market.Candle
	cursor := startMs
	for page := 0; cursor < endMs; page++ {
		if page >= a.cfg.MaxPages {
			return nil, provider.Errf(a.cfg.Name, "kline pagination exceeded %d pages", a.cfg.MaxPages)
		}
		kls, err := cli.NewKlinesService().
			Symbol(sym).
			Interval(interval).
			StartTime(cursor).
			Limit(a.cfg.PageSize).
			Do(ctx)
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		if len(kls) == 0 {
			break
		}
		for _, k := range kls {
			if k.OpenTime > endMs {
				continue
			}
			vals, err := parseFloats(k.Open, k.High, k.Low, k.Close, k.Volume)
			if err != nil {
				return nil, provider.Errf(a.cfg.Name, "malformed kline at %d: %v", k.OpenTime, err)
			}
			out = append(out, market.Candle{
				Time:   time.UnixMilli(k.OpenTime).UTC(),
				Open:   vals[0],
				High:   vals[1],
				Low:    vals[2],
				Close:  vals[3],
				Volume: vals[4],
			})
		}
		if len(kls) < a.cfg.PageSize {
			break
		}
		// one past the last row so the boundary record is not re-fetched
		cursor = kls[len(kls)-1].OpenTime + 1
	}

	if len(out) == 0 {
		return nil, provider.Errf(a.cfg.Name, "%w: no %s klines for %s", provider.ErrNoData, interval, sym)
	}
	return out, nil
}

func (a *Adapter) FetchTicks(ctx context.Context, symbol, startToken, endToken string) ([]market.Tick, error) {
	sym := exchangeSymbol(symbol)
	startMs, endMs, err := parseRangeMillis(startToken, endToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}

	cli := a.newClient()
	var trades []market.Trade
	cursor := startMs
	for page := 0; cursor < endMs; page++ {
		if page >= a.cfg.MaxPages {
			return nil, provider.Errf(a.cfg.Name, "trade pagination exceeded %d pages", a.cfg.MaxPages)
		}
		batch, err := cli.NewAggTradesService().
			Symbol(sym).
			StartTime(cursor).
			Limit(a.cfg.PageSize).
			Do(ctx)
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, t := range batch {
			if t.Timestamp > endMs {
				continue
			}
			vals, err := parseFloats(t.Price, t.Quantity)
			if err != nil {
				return nil, provider.Errf(a.cfg.Name, "malformed trade at %d: %v", t.Timestamp, err)
			}
			// the maker being the buyer means the aggressor sold
			side := market.SideBuy
			if t.IsBuyerMaker {
				side = market.SideSell
			}
			trades = append(trades, market.Trade{
				Time:  time.UnixMilli(t.Timestamp).UTC(),
				Price: vals[0],
				Size:  vals[1],
				Side:  side,
			})
		}
		if len(batch) < a.cfg.PageSize {
			break
		}
		cursor = batch[len(batch)-1].Timestamp + 1
	}

	if len(trades) == 0 {
		return nil, provider.Errf(a.cfg.Name, "%w: no trades for %s", provider.ErrNoData, sym)
	}
	return market.SynthesizeTicks(trades), nil
}

// exchangeSymbol strips the slash the exchange does not accept: EUR/USD
// becomes EURUSD.
func exchangeSymbol(symbol string) string {
	return strings.ReplaceAll(market.NormalizeSymbol(symbol), "/", "")
}

func parseRangeMillis(startToken, endToken string) (int64, int64, error) {
	start, err := timeparse.Parse(startToken)
	if err != nil {
		return 0, 0, err
	}
	end, err := timeparse.Parse(endToken)
	if err != nil {
		return 0, 0, err
	}
	return start.UnixMilli(), end.UnixMilli(), nil
}

func parseFloats(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
