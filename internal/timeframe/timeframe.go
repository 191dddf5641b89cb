// Package timeframe parses user-facing timeframe tokens and renders them
// into each provider's native vocabulary. Translation is a pure function of
// the token: the same input always yields the same provider string, and an
// unrecognized unit is a hard failure, never a silent default.
package timeframe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"findata/internal/provider"
)

// ErrInvalidTimeframe marks a token with no recognizable unit or count.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// TickToken is the reserved sentinel for tick requests, which bypass
// translation entirely.
const TickToken = "tick"

// Unit is the canonical bar interval unit.
type Unit int

const (
	UnitSec Unit = iota
	UnitMin
	UnitHour
	UnitDay
	UnitWeek
	UnitMonth
	UnitYear
)

func (u Unit) String() string {
	switch u {
	case UnitSec:
		return "sec"
	case UnitMin:
		return "min"
	case UnitHour:
		return "hour"
	case UnitDay:
		return "day"
	case UnitWeek:
		return "week"
	case UnitMonth:
		return "month"
	case UnitYear:
		return "year"
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// FixedDuration returns the wall-clock length of one unit for units with a
// fixed length. Month and year are calendar-dependent and return false.
func (u Unit) FixedDuration() (time.Duration, bool) {
	switch u {
	case UnitSec:
		return time.Second, true
	case UnitMin:
		return time.Minute, true
	case UnitHour:
		return time.Hour, true
	case UnitDay:
		return 24 * time.Hour, true
	case UnitWeek:
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

// Matching is ordered: the parsed unit string must be a prefix of a
// canonical key, and the first hit wins, so "m" resolves to minutes while
// "mo" resolves to months.
var canonical = []struct {
	key  string
	unit Unit
}{
	{"min", UnitMin},
	{"hour", UnitHour},
	{"day", UnitDay},
	{"week", UnitWeek},
	{"month", UnitMonth},
	{"year", UnitYear},
	{"sec", UnitSec},
}

var (
	reUnitFirst  = regexp.MustCompile(`^([a-z]+)([0-9]+)$`)
	reCountFirst = regexp.MustCompile(`^([0-9]+)([a-z]+)$`)
)

// Parse decomposes a token like "15min" or "min15" into (unit, count).
func Parse(token string) (Unit, int, error) {
	s := strings.ToLower(strings.TrimSpace(token))
	var unitStr, countStr string
	if m := reUnitFirst.FindStringSubmatch(s); m != nil {
		unitStr, countStr = m[1], m[2]
	} else if m := reCountFirst.FindStringSubmatch(s); m != nil {
		countStr, unitStr = m[1], m[2]
	} else {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, token)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("%w: bad count in %q", ErrInvalidTimeframe, token)
	}
	for _, c := range canonical {
		if strings.HasPrefix(c.key, unitStr) {
			return c.unit, count, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: unrecognized unit in %q", ErrInvalidTimeframe, token)
}

// Per-provider unit spellings. These tables must stay in lock-step: adding
// a unit to one provider means deciding what the others do with it.
var vocab = map[provider.Kind]map[Unit]string{
	provider.Dukascopy: {
		UnitSec:   "SEC",
		UnitMin:   "MIN",
		UnitHour:  "HOUR",
		UnitDay:   "DAY",
		UnitWeek:  "WEEK",
		UnitMonth: "MONTH",
		UnitYear:  "YEAR",
	},
	provider.Binance: {
		UnitSec:   "s",
		UnitMin:   "m",
		UnitHour:  "h",
		UnitDay:   "d",
		UnitWeek:  "w",
		UnitMonth: "M",
	},
	provider.Alpaca: {
		UnitMin:  "Min",
		UnitHour: "Hour",
		UnitDay:  "Day",
		UnitWeek: "Week",
	},
}

// Render spells out a parsed (unit, count) pair in a provider's native
// vocabulary, e.g. 15/min becomes "15MIN", "15m" or "15Min" depending on
// the target.
func Render(unit Unit, count int, kind provider.Kind) (string, error) {
	table, ok := vocab[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider kind %v", ErrInvalidTimeframe, kind)
	}
	spelled, ok := table[unit]
	if !ok {
		return "", fmt.Errorf("%w: %v does not support %v bars", ErrInvalidTimeframe, kind, unit)
	}
	return strconv.Itoa(count) + spelled, nil
}

// Translate is Parse followed by Render.
func Translate(token string, kind provider.Kind) (string, error) {
	unit, count, err := Parse(token)
	if err != nil {
		return "", err
	}
	return Render(unit, count, kind)
}
