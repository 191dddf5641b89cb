package market

import (
	"strings"
	"time"
)

// Candle is one aggregated price bar, normalized across all providers.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Tick is one sub-bar market data event. Quote-oriented providers fill
// bid/ask and the quote-side volumes; trade-oriented providers go through
// SynthesizeTicks and fill TradeVolume.
type Tick struct {
	Time        time.Time `json:"time"`
	Bid         float64   `json:"bid"`
	Ask         float64   `json:"ask"`
	BidVolume   float64   `json:"bid_volume"`
	AskVolume   float64   `json:"ask_volume"`
	TradeVolume float64   `json:"trade_volume"`
}

// Side is the aggressor side of a trade print.
type Side int

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// Trade is a raw trade print as received from a trade-oriented provider,
// before quote synthesis.
type Trade struct {
	Time  time.Time
	Price float64
	Size  float64
	Side  Side
}

// NormalizeSymbol trims whitespace and upper-cases a user-supplied
// instrument identifier. All adapters see symbols in this form.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Slash-less aliases that still mean crypto for providers that branch
// on asset class.
var cryptoAliases = map[string]struct{}{
	"BTCUSD": {},
	"ETHUSD": {},
}

// IsCrypto reports whether a symbol should be routed to a provider's
// crypto endpoints rather than its equity ones.
func IsCrypto(symbol string) bool {
	sym := NormalizeSymbol(symbol)
	if strings.Contains(sym, "/") {
		return true
	}
	_, ok := cryptoAliases[sym]
	return ok
}
