package market

// SynthesizeTicks derives a two-sided quote approximation from trade
// prints. A true spread is unobservable from trades, so both bid and ask
// carry the execution price; leaving one side empty would break consumers
// that expect paired values.
//
// Volume mapping: a buy-side aggressor executed against resting ask
// liquidity, so its size is attributed to AskVolume; a sell-side aggressor
// is attributed to BidVolume. When the side is unknown both quote volumes
// stay zero. TradeVolume always carries the trade size.
//
// This is a lossy approximation of the book, not a reconstruction of it.
func SynthesizeTicks(trades []Trade) []Tick {
	out := make([]Tick, 0, len(trades))
	for _, t := range trades {
		tick := Tick{
			Time:        t.Time,
			Bid:         t.Price,
			Ask:         t.Price,
			TradeVolume: t.Size,
		}
		switch t.Side {
		case SideBuy:
			tick.AskVolume = t.Size
		case SideSell:
			tick.BidVolume = t.Size
		}
		out = append(out, tick)
	}
	return out
}
