package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"findata/internal/config"
	"findata/internal/fetchcache"
	"findata/internal/httpx"
	"findata/internal/market"
	"findata/internal/provider"
	"findata/internal/provider/alpaca"
	"findata/internal/provider/binance"
	"findata/internal/provider/dukascopy"
	"findata/internal/provider/ratelimit"
	"findata/internal/timeframe"
	"findata/internal/timeparse"
	"findata/internal/unified"
)

type ohlcvResponse struct {
	Provider  string          `json:"provider"`
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Candles   []market.Candle `json:"candles"`
}

type tickResponse struct {
	Provider string        `json:"provider"`
	Symbol   string        `json:"symbol"`
	Ticks    []market.Tick `json:"ticks"`
}

// fetcher is the slice of the stack the handlers need; the cache and the
// raw orchestrator both satisfy it.
type fetcher interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe, start, end string) ([]market.Candle, string, error)
	FetchTicks(ctx context.Context, symbol, start, end string) ([]market.Tick, string, error)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}
	creds := provider.Credentials{APIKey: cfg.Alpaca.APIKey, SecretKey: cfg.Alpaca.SecretKey}
	if cfg.Alpaca.Enabled && !creds.Valid() {
		logger.Warn("alpaca enabled but ALPACA_API_KEY / ALPACA_SECRET_KEY not set; broker will be skipped")
	}

	f := buildFetcher(cfg, creds, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/ohlcv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleOHLCV(w, r, f)
	})
	mux.HandleFunc("/api/ticks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleTicks(w, r, f)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec+5) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildFetcher assembles the chain from config: adapters, per-provider rate
// limiting, the fallback orchestrator and the result cache on top.
func buildFetcher(cfg config.Config, creds provider.Credentials, logger *slog.Logger) fetcher {
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

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

	var f fetcher = unified.New(opts)
	if cfg.Cache.TTLSeconds > 0 {
		f = fetchcache.New(f, time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxEntries)
	}
	return f
}

func handleOHLCV(w http.ResponseWriter, r *http.Request, f fetcher) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	tf := q.Get("timeframe")
	start := q.Get("start")
	end := q.Get("end")
	if symbol == "" || tf == "" || start == "" || end == "" {
		http.Error(w, "symbol, timeframe, start and end are required", http.StatusBadRequest)
		return
	}
	candles, name, err := f.FetchOHLCV(r.Context(), symbol, tf, start, end)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, ohlcvResponse{
		Provider:  name,
		Symbol:    market.NormalizeSymbol(symbol),
		Timeframe: tf,
		Candles:   candles,
	})
}

func handleTicks(w http.ResponseWriter, r *http.Request, f fetcher) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	start := q.Get("start")
	end := q.Get("end")
	if symbol == "" || start == "" || end == "" {
		http.Error(w, "symbol, start and end are required", http.StatusBadRequest)
		return
	}
	ticks, name, err := f.FetchTicks(r.Context(), symbol, start, end)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, tickResponse{
		Provider: name,
		Symbol:   market.NormalizeSymbol(symbol),
		Ticks:    ticks,
	})
}

// writeFetchError maps the error taxonomy onto status codes: malformed
// request tokens are the caller's fault, an exhausted chain is upstream's.
func writeFetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, timeframe.ErrInvalidTimeframe) || errors.Is(err, timeparse.ErrInvalidTime) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var ex *unified.ExhaustedError
	if errors.As(err, &ex) {
		http.Error(w, ex.Error(), http.StatusBadGateway)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses responses when the client supports it. Tick payloads
// for busy ranges run to megabytes of JSON, so this is not optional.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
