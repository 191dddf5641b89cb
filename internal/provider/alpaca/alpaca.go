// Package alpaca implements the broker adapter on top of the official
// market data SDK. Requests branch on asset class: crypto symbols go to the
// crypto endpoints, everything else to the equity ones with an explicit
// feed tier. Responses come back keyed by symbol and are projected to the
// single requested instrument.
package alpaca

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	md "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"findata/internal/httpx"
	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/timeframe"
	"findata/internal/timeparse"
)

type Config struct {
	Name    string
	BaseURL string // override for tests
	Feed    string // equity market-data feed tier; default "sip"
}

type Adapter struct {
	cfg   Config
	creds provider.Credentials
	httpc *http.Client
}

func New(cfg Config, creds provider.Credentials, hc *httpx.Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Alpaca"
	}
	if cfg.Feed == "" {
		cfg.Feed = string(md.SIP)
	}
	a := &Adapter{cfg: cfg, creds: creds}
	if hc != nil {
		a.httpc = hc.HTTP
	}
	return a
}

func (a *Adapter) Name() string { return a.cfg.Name }

// newClient builds a fresh SDK client scoped to one fetch.
func (a *Adapter) newClient() *md.Client {
	opts := md.ClientOpts{
		APIKey:    a.creds.APIKey,
		APISecret: a.creds.SecretKey,
	}
	if a.cfg.BaseURL != "" {
		opts.BaseURL = a.cfg.BaseURL
	}
	if a.httpc != nil {
		opts.HTTPClient = a.httpc
	}
	return md.NewClient(opts)
}

var tfUnits = map[timeframe.Unit]md.TimeFrameUnit{
	timeframe.UnitMin:  md.Min,
	timeframe.UnitHour: md.Hour,
	timeframe.UnitDay:  md.Day,
	timeframe.UnitWeek: md.Week,
}

func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, tfToken, startToken, endToken string) ([]market.Candle, error) {
	sym := market.NormalizeSymbol(symbol)
	unit, count, err := timeframe.Parse(tfToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}
	// Render enforces the broker vocabulary: units the broker does not
	// serve (sec, month, year) fail here instead of degrading to 1Min.
	if _, err := timeframe.Render(unit, count, provider.Alpaca); err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}
	barTF := md.NewTimeFrame(count, tfUnits[unit])
	start, end, err := parseRange(startToken, endToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}

	cli := a.newClient()
	var out []market.Candle
	if market.IsCrypto(sym) {
		pair := cryptoPair(sym)
		bars, err := cli.GetCryptoMultiBars([]string{pair}, md.GetCryptoBarsRequest{
			TimeFrame: barTF,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		for _, b := range bars[pair] {
			out = append(out, market.Candle{
				Time:   b.Timestamp.UTC(),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}
	} else {
		bars, err := cli.GetMultiBars([]string{sym}, md.GetBarsRequest{
			TimeFrame: barTF,
			Start:     start,
			End:       end,
			Feed:      md.Feed(a.cfg.Feed),
		})
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		for _, b := range bars[sym] {
			out = append(out, market.Candle{
				Time:   b.Timestamp.UTC(),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: float64(b.Volume),
			})
		}
	}

	if len(out) == 0 {
		return nil, provider.Errf(a.cfg.Name, "%w: no bars for %s", provider.ErrNoData, sym)
	}
	sortCandles(out)
	return out, nil
}

func (a *Adapter) FetchTicks(ctx context.Context, symbol, startToken, endToken string) ([]market.Tick, error) {
	sym := market.NormalizeSymbol(symbol)
	start, end, err := parseRange(startToken, endToken)
	if err != nil {
		return nil, provider.Wrap(a.cfg.Name, err)
	}

	cli := a.newClient()
	var trades []market.Trade
	if market.IsCrypto(sym) {
		pair := cryptoPair(sym)
		resp, err := cli.GetCryptoMultiTrades([]string{pair}, md.GetCryptoTradesRequest{
			Start: start,
			End:   end,
		})
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		for _, t := range resp[pair] {
			trades = append(trades, market.Trade{
				Time:  t.Timestamp.UTC(),
				Price: t.Price,
				Size:  t.Size,
				// aggressor side is not reliably reported; leave unknown
				Side: market.SideUnknown,
			})
		}
	} else {
		resp, err := cli.GetMultiTrades([]string{sym}, md.GetTradesRequest{
			Start: start,
			End:   end,
			Feed:  md.Feed(a.cfg.Feed),
		})
		if err != nil {
			return nil, provider.Wrap(a.cfg.Name, err)
		}
		for _, t := range resp[sym] {
			trades = append(trades, market.Trade{
				Time:  t.Timestamp.UTC(),
				Price: t.Price,
				Size:  float64(t.Size),
				Side:  market.SideUnknown,
			})
		}
	}

	if len(trades) == 0 {
		return nil, provider.Errf(a.cfg.Name, "%w: no trades for %s", provider.ErrNoData, sym)
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].Time.Before(trades[j].Time) })
	return market.SynthesizeTicks(trades), nil
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

// cryptoPair rewrites a slash-less crypto alias into the broker's
// BASE/QUOTE form: BTCUSD becomes BTC/USD. Symbols already containing a
// slash pass through.
func cryptoPair(sym string) string {
	if strings.Contains(sym, "/") {
		return sym
	}
	if len(sym) > 3 && strings.HasSuffix(sym, "USD") {
		return sym[:len(sym)-3] + "/USD"
	}
	return sym
}

// sortCandles orders bars ascending by time; broker responses are not
// guaranteed ordered.
func sortCandles(cs []market.Candle) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Time.Before(cs[j].Time) })
}
