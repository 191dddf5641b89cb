// Package timeparse converts user-facing date/time tokens into instants.
//
// The primary grammar is up to six hyphen-separated integers,
// YYYY-MM-DD-HH-MM-SS, with missing trailing fields defaulting to zero so a
// bare YYYY-MM-DD means midnight. When the token does not parse as plain
// integers, an ISO 8601 combined representation is accepted as a fallback.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime marks a token that matches neither grammar. It is a
// caller mistake, surfaced before any provider is attempted.
var ErrInvalidTime = errors.New("invalid date token")

// RenderLayout is the canonical rendering used when a provider needs a
// string-typed boundary instead of a structured instant.
const RenderLayout = "2006-01-02T15:04:05"

var isoLayouts = []string{
	time.RFC3339,
	RenderLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse converts a token into a UTC instant.
func Parse(token string) (time.Time, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	if t, ok := parseHyphenated(s); ok {
		return t, nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD-HH-MM-SS)", ErrInvalidTime, token)
}

// Render produces the canonical string form of an instant. Parse(Render(t))
// round-trips for any t with second precision.
func Render(t time.Time) string {
	return t.UTC().Format(RenderLayout)
}

func parseHyphenated(s string) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) > 6 {
		return time.Time{}, false
	}
	nums := make([]int, 0, 6)
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums = append(nums, n)
	}
	for len(nums) < 6 {
		nums = append(nums, 0)
	}
	t := time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], nums[5], 0, time.UTC)
	// time.Date normalizes out-of-range fields; a token like 2025-13-01
	// must fail instead of rolling over into the next year.
	if t.Year() != nums[0] || int(t.Month()) != nums[1] || t.Day() != nums[2] ||
		t.Hour() != nums[3] || t.Minute() != nums[4] || t.Second() != nums[5] {
		return time.Time{}, false
	}
	return t, true
}
