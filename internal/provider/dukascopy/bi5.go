package dukascopy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/ulikunitz/xz/lzma"

	"findata/internal/market"
)

// Dukascopy serves history as LZMA-compressed ".bi5" files of fixed-width
// big-endian records. Tick files cover one hour; candle files cover one
// day (minute bars), one month (hourly bars) or one year (daily bars).
const (
	tickRecordSize   = 20
	candleRecordSize = 24
)

// priceScale returns the fixed-point divisor for a symbol. JPY-quoted
// pairs carry 3 decimal places, everything else 5.
func priceScale(symbol string) float64 {
	if strings.Contains(symbol, "JPY") {
		return 1e3
	}
	return 1e5
}

func decompress(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	r, err := lzma.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return out, nil
}

// decodeTicks unpacks an hourly tick file. Record layout: millisecond
// offset from the hour, ask, bid (fixed-point), ask volume, bid volume.
func decodeTicks(raw []byte, hour time.Time, scale float64) []market.Tick {
	n := len(raw) / tickRecordSize
	out := make([]market.Tick, 0, n)
	for i := 0; i < n; i++ {
		rec := raw[i*tickRecordSize : (i+1)*tickRecordSize]
		ms := binary.BigEndian.Uint32(rec[0:4])
		ask := binary.BigEndian.Uint32(rec[4:8])
		bid := binary.BigEndian.Uint32(rec[8:12])
		askVol := math.Float32frombits(binary.BigEndian.Uint32(rec[12:16]))
		bidVol := math.Float32frombits(binary.BigEndian.Uint32(rec[16:20]))
		out = append(out, market.Tick{
			Time:      hour.Add(time.Duration(ms) * time.Millisecond),
			Bid:       float64(bid) / scale,
			Ask:       float64(ask) / scale,
			BidVolume: float64(bidVol),
			AskVolume: float64(askVol),
			// quote feed: there is no trade volume to report
		})
	}
	return out
}

// decodeCandles unpacks a candle file. Record layout: second offset from
// the file period start, then open, close, low, high (fixed-point) and a
// float volume. Volume is frequently zero for non-FX instruments.
func decodeCandles(raw []byte, periodStart time.Time, scale float64) []market.Candle {
	n := len(raw) / candleRecordSize
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		rec := raw[i*candleRecordSize : (i+1)*candleRecordSize]
		secs := binary.BigEndian.Uint32(rec[0:4])
		open := binary.BigEndian.Uint32(rec[4:8])
		close_ := binary.BigEndian.Uint32(rec[8:12])
		low := binary.BigEndian.Uint32(rec[12:16])
		high := binary.BigEndian.Uint32(rec[16:20])
		vol := math.Float32frombits(binary.BigEndian.Uint32(rec[20:24]))
		out = append(out, market.Candle{
			Time:   periodStart.Add(time.Duration(secs) * time.Second),
			Open:   float64(open) / scale,
			High:   float64(high) / scale,
			Low:    float64(low) / scale,
			Close:  float64(close_) / scale,
			Volume: float64(vol),
		})
	}
	return out
}

// URL helpers. The datafeed uses a zero-based month in paths (Jan=00).

func tickURL(base, symbol string, hour time.Time) string {
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02dh_ticks.bi5",
		strings.TrimRight(base, "/"), symbol,
		hour.Year(), int(hour.Month())-1, hour.Day(), hour.Hour())
}

func minCandleURL(base, symbol string, day time.Time) string {
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/BID_candles_min_1.bi5",
		strings.TrimRight(base, "/"), symbol,
		day.Year(), int(day.Month())-1, day.Day())
}

func hourCandleURL(base, symbol string, month time.Time) string {
	return fmt.Sprintf("%s/%s/%04d/%02d/BID_candles_hour_1.bi5",
		strings.TrimRight(base, "/"), symbol,
		month.Year(), int(month.Month())-1)
}

func dayCandleURL(base, symbol string, year time.Time) string {
	return fmt.Sprintf("%s/%s/%04d/BID_candles_day_1.bi5",
		strings.TrimRight(base, "/"), symbol, year.Year())
}
