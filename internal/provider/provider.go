package provider

import (
	"context"
	"errors"
	"fmt"

	"findata/internal/market"
)

// Kind identifies one of the supported upstream providers. The fallback
// chain is a typed sequence over these, not string dispatch.
type Kind int

const (
	// Dukascopy is the historical quote feed: bulk range queries, no
	// pagination, true two-sided ticks.
	Dukascopy Kind = iota
	// Binance is the exchange: paginated REST polling over trades and
	// klines with a fixed page size.
	Binance
	// Alpaca is the broker: range queries with crypto/equity branching,
	// enabled only when credentials are present.
	Alpaca
)

func (k Kind) String() string {
	switch k {
	case Dukascopy:
		return "dukascopy"
	case Binance:
		return "binance"
	case Alpaca:
		return "alpaca"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Credentials is the optional API key pair required by the broker.
type Credentials struct {
	APIKey    string
	SecretKey string
}

func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// Adapter is the capability every provider variant implements. Adapters
// are stateless apart from injected configuration and credentials; both
// methods accept the raw user tokens and perform their own translation.
//
//go:generate mockgen -package=unified_test -destination=../unified/mock_adapter_test.go -source=provider.go Adapter
type Adapter interface {
	Name() string
	FetchOHLCV(ctx context.Context, symbol, timeframe, start, end string) ([]market.Candle, error)
	FetchTicks(ctx context.Context, symbol, start, end string) ([]market.Tick, error)
}

var (
	// ErrNoData marks a structurally valid upstream response with zero
	// records for the requested range. Treated like any other provider
	// failure by the fallback chain.
	ErrNoData = errors.New("no data for requested range")

	// ErrUnavailable marks a provider that could not be attempted at all
	// (not configured, or missing credentials). Recorded distinctly so
	// operators can tell "provider declined" from "provider not set up".
	ErrUnavailable = errors.New("provider unavailable")
)

// Error is the single failure type allowed to leave an adapter. Raw
// transport and parse errors are always wrapped with the provider's name.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap normalizes err into a *Error carrying name. Errors that already
// carry a provider name pass through unchanged.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: name, Err: err}
}

// Errf builds a *Error from a format string.
func Errf(name, format string, args ...any) *Error {
	return &Error{Provider: name, Err: fmt.Errorf(format, args...)}
}
