package dukascopy

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"

	"findata/internal/httpx"
	"findata/internal/provider"
	"findata/internal/timeframe"
)

func compressLZMA(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func tickRecord(msOffset uint32, ask, bid uint32, askVol, bidVol float32) []byte {
	rec := make([]byte, tickRecordSize)
	binary.BigEndian.PutUint32(rec[0:4], msOffset)
	binary.BigEndian.PutUint32(rec[4:8], ask)
	binary.BigEndian.PutUint32(rec[8:12], bid)
	binary.BigEndian.PutUint32(rec[12:16], math.Float32bits(askVol))
	binary.BigEndian.PutUint32(rec[16:20], math.Float32bits(bidVol))
	return rec
}

func candleRecord(secOffset uint32, open, close_, low, high uint32, vol float32) []byte {
	rec := make([]byte, candleRecordSize)
	binary.BigEndian.PutUint32(rec[0:4], secOffset)
	binary.BigEndian.PutUint32(rec[4:8], open)
	binary.BigEndian.PutUint32(rec[8:12], close_)
	binary.BigEndian.PutUint32(rec[12:16], low)
	binary.BigEndian.PutUint32(rec[16:20], high)
	binary.BigEndian.PutUint32(rec[20:24], math.Float32bits(vol))
	return rec
}

func TestPriceScale(t *testing.T) {
	assert.Equal(t, 1e3, priceScale("USDJPY"))
	assert.Equal(t, 1e3, priceScale("EURJPY"))
	assert.Equal(t, 1e5, priceScale("EURUSD"))
}

func TestDecodeTicks(t *testing.T) {
	hour := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := tickRecord(1500, 108550, 108540, 1.25, 0.75)

	ticks := decodeTicks(raw, hour, 1e5)
	require.Len(t, ticks, 1)
	tk := ticks[0]
	assert.True(t, tk.Time.Equal(hour.Add(1500*time.Millisecond)))
	assert.InDelta(t, 1.08550, tk.Ask, 1e-9)
	assert.InDelta(t, 1.08540, tk.Bid, 1e-9)
	assert.InDelta(t, 1.25, tk.AskVolume, 1e-6)
	assert.InDelta(t, 0.75, tk.BidVolume, 1e-6)
	assert.Zero(t, tk.TradeVolume)
}

// The datafeed spells months zero-based: March lives under /02/.
func TestURLsUseZeroBasedMonth(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t,
		"http://x/EURUSD/2024/02/01/10h_ticks.bi5",
		tickURL("http://x", "EURUSD", at))
	assert.Equal(t,
		"http://x/EURUSD/2024/02/01/BID_candles_min_1.bi5",
		minCandleURL("http://x", "EURUSD", at))
	assert.Equal(t,
		"http://x/EURUSD/2024/02/BID_candles_hour_1.bi5",
		hourCandleURL("http://x", "EURUSD", at))
	assert.Equal(t,
		"http://x/EURUSD/2024/BID_candles_day_1.bi5",
		dayCandleURL("http://x", "EURUSD", at))
}

func TestFetchTicksFiltersToRange(t *testing.T) {
	payload := append(
		tickRecord(0, 108550, 108540, 1, 1),
		tickRecord(30*60*1000, 108560, 108550, 2, 2)...)
	payload = append(payload, tickRecord(59*60*1000+59000, 108570, 108560, 3, 3)...)
	body := compressLZMA(t, payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/EURUSD/2024/02/01/10h_ticks.bi5" {
			_, _ = w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	ticks, err := a.FetchTicks(context.Background(),
		"EURUSD", "2024-03-01-10", "2024-03-01-10-45")
	require.NoError(t, err)
	// the 10:59:59 record falls outside the requested range
	require.Len(t, ticks, 2)
	assert.InDelta(t, 1.08540, ticks[0].Bid, 1e-9)
	assert.InDelta(t, 1.08550, ticks[1].Bid, 1e-9)
}

func TestFetchTicksNoData(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	_, err := a.FetchTicks(context.Background(), "EURUSD", "2024-03-01", "2024-03-01-02")
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrNoData)

	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Dukascopy", pe.Provider)
}

func TestFetchOHLCVAggregatesMinuteBars(t *testing.T) {
	// two 1-min bars inside one 15-min bucket, one in the next
	payload := append(
		candleRecord(0, 108500, 108520, 108490, 108530, 10),
		candleRecord(60, 108520, 108510, 108480, 108540, 5)...)
	payload = append(payload, candleRecord(15*60, 108510, 108600, 108505, 108610, 7)...)
	body := compressLZMA(t, payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/EURUSD/2024/02/01/BID_candles_min_1.bi5" {
			_, _ = w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	candles, err := a.FetchOHLCV(context.Background(),
		"EURUSD", "15min", "2024-03-01", "2024-03-01-01")
	require.NoError(t, err)
	require.Len(t, candles, 2)

	first := candles[0]
	assert.True(t, first.Time.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 1.08500, first.Open, 1e-9)
	assert.InDelta(t, 1.08540, first.High, 1e-9)
	assert.InDelta(t, 1.08480, first.Low, 1e-9)
	assert.InDelta(t, 1.08510, first.Close, 1e-9)
	assert.InDelta(t, 15, first.Volume, 1e-6)

	second := candles[1]
	assert.True(t, second.Time.Equal(time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC)))
	assert.InDelta(t, 7, second.Volume, 1e-6)
}

func TestFetchOHLCVSecondBarsFromTicks(t *testing.T) {
	payload := append(
		tickRecord(100, 108560, 108550, 1, 2),
		tickRecord(900, 108570, 108560, 1, 3)...)
	payload = append(payload, tickRecord(10_000, 108540, 108530, 1, 4)...)
	body := compressLZMA(t, payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/EURUSD/2024/02/01/10h_ticks.bi5" {
			_, _ = w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	candles, err := a.FetchOHLCV(context.Background(),
		"EURUSD", "10sec", "2024-03-01-10", "2024-03-01-11")
	require.NoError(t, err)
	require.Len(t, candles, 2)

	first := candles[0]
	assert.InDelta(t, 1.08550, first.Open, 1e-9)
	assert.InDelta(t, 1.08560, first.Close, 1e-9)
	assert.InDelta(t, 5, first.Volume, 1e-6) // bid volumes 2+3
}

func TestBucketFuncCalendarUnits(t *testing.T) {
	monthly := bucketFunc(timeframe.UnitMonth, 3)
	got := monthly(time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

	yearly := bucketFunc(timeframe.UnitYear, 1)
	got = yearly(time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestInvalidTimeframeIsWrapped(t *testing.T) {
	a := New(Config{BaseURL: "http://unused"}, httpx.New(time.Second))
	_, err := a.FetchOHLCV(context.Background(), "EURUSD", "15xyz", "2024-03-01", "2024-03-02")
	assert.ErrorIs(t, err, timeframe.ErrInvalidTimeframe)

	var pe *provider.Error
	assert.ErrorAs(t, err, &pe)
}
