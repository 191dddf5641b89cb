package binance_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findata/internal/httpx"
	"findata/internal/provider"
	"findata/internal/provider/binance"
	"findata/internal/timeframe"
)

var rangeStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type kline struct {
	openTime int64
	o, h, l, c, v string
}

func (k kline) row() []any {
	return []any{
		k.openTime, k.o, k.h, k.l, k.c, k.v,
		k.openTime + 899_999, "0", 10, "0", "0", "0",
	}
}

// klineServer pages a fixed sequence of klines by the startTime query
// param the way the real endpoint does.
func klineServer(t *testing.T, all []kline) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		require.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var rows [][]any
		for _, k := range all {
			if k.openTime >= start && len(rows) < limit {
				rows = append(rows, k.row())
			}
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
}

func TestFetchOHLCVPaginates(t *testing.T) {
	var all []kline
	for i := 0; i < 5; i++ {
		ts := rangeStart.Add(time.Duration(i) * 15 * time.Minute).UnixMilli()
		all = append(all, kline{ts, "100", "110", "90", "105", fmt.Sprint(i + 1)})
	}
	srv := klineServer(t, all)
	defer srv.Close()

	a := binance.New(binance.Config{BaseURL: srv.URL, PageSize: 2}, httpx.New(5*time.Second))
	candles, err := a.FetchOHLCV(context.Background(),
		"BTC/USDT", "15min", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, candles, 5)

	// no duplicates across page boundaries, ascending times
	for i := 1; i < len(candles); i++ {
		assert.True(t, candles[i].Time.After(candles[i-1].Time))
	}
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 5.0, candles[4].Volume)
}

func TestFetchOHLCVFiltersPastEnd(t *testing.T) {
	inside := rangeStart.Add(15 * time.Minute).UnixMilli()
	outside := rangeStart.Add(48 * time.Hour).UnixMilli()
	srv := klineServer(t, []kline{
		{inside, "100", "110", "90", "105", "1"},
		{outside, "200", "210", "190", "205", "2"},
	})
	defer srv.Close()

	a := binance.New(binance.Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	candles, err := a.FetchOHLCV(context.Background(),
		"BTCUSDT", "15min", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 100.0, candles[0].Open)
}

func TestFetchOHLCVNoData(t *testing.T) {
	srv := klineServer(t, nil)
	defer srv.Close()

	a := binance.New(binance.Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	_, err := a.FetchOHLCV(context.Background(),
		"BTCUSDT", "15min", "2024-03-01", "2024-03-02")
	assert.ErrorIs(t, err, provider.ErrNoData)
}

func TestFetchOHLCVUnsupportedUnit(t *testing.T) {
	a := binance.New(binance.Config{BaseURL: "http://unused"}, httpx.New(time.Second))
	// the exchange has no yearly interval; must fail, not degrade
	_, err := a.FetchOHLCV(context.Background(),
		"BTCUSDT", "1year", "2024-03-01", "2024-03-02")
	assert.ErrorIs(t, err, timeframe.ErrInvalidTimeframe)
}

type aggTrade struct {
	ID           int64   `json:"a"`
	Price        string  `json:"p"`
	Quantity     string  `json:"q"`
	First        int64   `json:"f"`
	Last         int64   `json:"l"`
	Timestamp    int64   `json:"T"`
	IsBuyerMaker bool    `json:"m"`
	IsBestMatch  bool    `json:"M"`
}

func TestFetchTicksSideMapping(t *testing.T) {
	buyTs := rangeStart.Add(time.Second).UnixMilli()
	sellTs := rangeStart.Add(2 * time.Second).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/aggTrades", r.URL.Path)
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		trades := []aggTrade{
			{ID: 1, Price: "62000.5", Quantity: "0.25", Timestamp: buyTs, IsBuyerMaker: false},
			{ID: 2, Price: "62000.0", Quantity: "0.50", Timestamp: sellTs, IsBuyerMaker: true},
		}
		var out []aggTrade
		for _, tr := range trades {
			if tr.Timestamp >= start {
				out = append(out, tr)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	a := binance.New(binance.Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	ticks, err := a.FetchTicks(context.Background(),
		"BTCUSDT", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	// maker was the seller -> aggressor bought -> ask side volume
	buy := ticks[0]
	assert.Equal(t, 62000.5, buy.Ask)
	assert.Equal(t, 62000.5, buy.Bid)
	assert.Equal(t, 0.25, buy.AskVolume)
	assert.Zero(t, buy.BidVolume)
	assert.Equal(t, 0.25, buy.TradeVolume)

	// maker was the buyer -> aggressor sold -> bid side volume
	sell := ticks[1]
	assert.Equal(t, 0.5, sell.BidVolume)
	assert.Zero(t, sell.AskVolume)
}

func TestFetchTicksNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	a := binance.New(binance.Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	_, err := a.FetchTicks(context.Background(), "BTCUSDT", "2024-03-01", "2024-03-02")
	assert.ErrorIs(t, err, provider.ErrNoData)

	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Binance", pe.Provider)
}
