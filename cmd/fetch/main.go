package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"findata/internal/config"
	"findata/internal/httpx"
	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/provider/alpaca"
	"findata/internal/provider/binance"
	"findata/internal/provider/dukascopy"
	"findata/internal/provider/ratelimit"
	"findata/internal/timeframe"
	"findata/internal/unified"
)

func main() {
	var symbol string
	var tf string
	var start string
	var end string
	var timeout int
	var configPath string

	flag.StringVar(&symbol, "symbol", getenv("SYMBOL", "EURUSD"), "instrument symbol")
	flag.StringVar(&tf, "timeframe", getenv("TIMEFRAME", "15min"), "bar timeframe, or 'tick' for raw ticks")
	flag.StringVar(&start, "start", "", "range start (YYYY-MM-DD-HH-MM-SS or ISO 8601)")
	flag.StringVar(&end, "end", "", "range end (YYYY-MM-DD-HH-MM-SS or ISO 8601)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 60), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if start == "" || end == "" {
		logger.Error("both -start and -end are required")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}
	if timeout > 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	creds := provider.Credentials{APIKey: cfg.Alpaca.APIKey, SecretKey: cfg.Alpaca.SecretKey}

	opts := unified.Options{Credentials: creds, Logger: logger}
	if cfg.Dukascopy.Enabled {
		opts.HistoricalFeed = dukascopy.New(dukascopy.Config{BaseURL: cfg.Dukascopy.BaseURL}, httpClient)
	}
	if cfg.Binance.Enabled {
		opts.Exchange = ratelimit.Wrap(binance.New(binance.Config{
			BaseURL:  cfg.Binance.BaseURL,
			PageSize: cfg.Binance.PageSize,
			MaxPages: cfg.Binance.MaxPages,
		}, httpClient), cfg.Binance.MaxRequestsPerMinute, cfg.Binance.Burst)
	}
	if cfg.Alpaca.Enabled {
		opts.Broker = alpaca.New(alpaca.Config{
			BaseURL: cfg.Alpaca.BaseURL,
			Feed:    cfg.Alpaca.Feed,
		}, creds, httpClient)
	}
	f := unified.New(opts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	if tf == timeframe.TickToken {
		ticks, name, err := f.FetchTicks(ctx, symbol, start, end)
		if err != nil {
			logger.Error("fetch ticks", "err", err)
			os.Exit(1)
		}
		logger.Info("fetched", "provider", name, "ticks", len(ticks))
		printSample(struct {
			Provider string        `json:"provider"`
			Ticks    []market.Tick `json:"ticks"`
		}{name, head(ticks)})
		return
	}

	candles, name, err := f.FetchOHLCV(ctx, symbol, tf, start, end)
	if err != nil {
		logger.Error("fetch ohlcv", "err", err)
		os.Exit(1)
	}
	logger.Info("fetched", "provider", name, "candles", len(candles))
	printSample(struct {
		Provider string          `json:"provider"`
		Candles  []market.Candle `json:"candles"`
	}{name, head(candles)})
}

// head returns up to the first 10 records for inspection.
func head[T any](in []T) []T {
	if len(in) > 10 {
		return in[:10]
	}
	return in
}

func printSample(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
