package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ErrInvalidTimeframe is returned when a timeframe string cannot be parsed.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Timeframe is a candle width such as "1m", "90s" or "4h".
type Timeframe string

// Builtin timeframes offered to clients.
const (
	Timeframe1s  Timeframe = "1s"
	Timeframe5s  Timeframe = "5s"
	Timeframe15s Timeframe = "15s"
	Timeframe30s Timeframe = "30s"
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
)

// DefaultTimeframe is used when a session starts.
const DefaultTimeframe = Timeframe5m

// fallbackSeconds is the width used for unparseable timeframes.
const fallbackSeconds = 5

// maxTimeframeSeconds keeps the bucket width in milliseconds within int64.
const maxTimeframeSeconds = math.MaxInt64 / 1000

var builtinTimeframes = map[Timeframe]int64{
	Timeframe1s:  1,
	Timeframe5s:  5,
	Timeframe15s: 15,
	Timeframe30s: 30,
	Timeframe1m:  60,
	Timeframe5m:  300,
	Timeframe15m: 900,
	Timeframe30m: 1800,
	Timeframe1h:  3600,
}

var customTimeframe = regexp.MustCompile(`^(\d+)(s|m|h)$`)

// BuiltinTimeframes returns the preset timeframes in ascending width.
func BuiltinTimeframes() []Timeframe {
	return []Timeframe{
		Timeframe1s, Timeframe5s, Timeframe15s, Timeframe30s,
		Timeframe1m, Timeframe5m, Timeframe15m, Timeframe30m, Timeframe1h,
	}
}

// ParseTimeframe validates s and returns it as a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := builtinTimeframes[tf]; ok {
		return tf, nil
	}
	if _, ok := parseCustom(s); ok {
		return tf, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
}

// Seconds returns the bucket width in seconds.
// Unparseable values fall back to 5 seconds.
func (tf Timeframe) Seconds() int64 {
	if secs, ok := builtinTimeframes[tf]; ok {
		return secs
	}
	if secs, ok := parseCustom(string(tf)); ok {
		return secs
	}
	return fallbackSeconds
}

func parseCustom(s string) (int64, bool) {
	m := customTimeframe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	unit := int64(1)
	switch m[2] {
	case "m":
		unit = 60
	case "h":
		unit = 3600
	}
	if n > maxTimeframeSeconds/unit {
		return 0, false
	}
	return n * unit, true
}
