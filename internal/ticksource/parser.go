// Package ticksource reads NinjaTrader tick exports.
//
// Two line layouts are supported:
//
//	bar:  YYYYMMDD HHmmss;Open;High;Low;Close;Volume
//	tick: YYYYMMDD HHmmss fffffff;Last;Bid;Ask;Volume
//
// Bar lines become ticks priced at the close with bid = low and ask = high.
// Timestamps are UTC. The layout is detected from the first data line.
package ticksource

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"tick-replay-lab/internal/domain"
)

// Format identifies a tick file layout.
type Format string

// Supported layouts.
const (
	FormatUnknown Format = ""
	FormatBar     Format = "nt-bar"
	FormatTick    Format = "nt-tick"
)

const stampLayout = "20060102 150405"

// Options controls parsing.
type Options struct {
	// Strict fails on the first malformed line instead of skipping it.
	Strict bool
}

// Result is a parsed tick file.
type Result struct {
	Ticks       []domain.Tick
	Format      Format
	Lines       int // non-blank lines read
	HeaderLines int // non-numeric lines before the first tick
	Malformed   int // skipped lines (lenient mode)
}

// ParseFile opens path and parses it.
func ParseFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tick file: %w", err)
	}
	defer f.Close()

	res, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return res, nil
}

// Parse reads ticks from r. A UTF-8 or UTF-16 byte order mark is honoured;
// input without one is read as UTF-8. The returned ticks are sorted stably by timestamp.
func Parse(r io.Reader, opts Options) (*Result, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	res := &Result{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res.Lines++

		if len(res.Ticks) == 0 && res.Format == FormatUnknown && !startsWithDigit(line) {
			res.HeaderLines++
			continue
		}

		tick, format, err := ParseLine(line)
		if err == nil && res.Format != FormatUnknown && format != res.Format {
			err = fmt.Errorf("%w: layout %s in a %s file", ErrMalformedLine, format, res.Format)
		}
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			res.Malformed++
			continue
		}
		if res.Format == FormatUnknown {
			res.Format = format
		}
		res.Ticks = append(res.Ticks, tick)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ticks: %w", err)
	}
	if res.Format == FormatUnknown {
		return nil, ErrUnknownFormat
	}

	sort.SliceStable(res.Ticks, func(i, j int) bool {
		return res.Ticks[i].Timestamp < res.Ticks[j].Timestamp
	})
	return res, nil
}

// ParseLine parses one line in either layout.
func ParseLine(line string) (domain.Tick, Format, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < len(stampLayout)+1 || !startsWithDigit(line) {
		return domain.Tick{}, FormatUnknown, fmt.Errorf("%w: too short or not a data line", ErrMalformedLine)
	}

	stamp, err := time.ParseInLocation(stampLayout, line[:len(stampLayout)], time.UTC)
	if err != nil {
		return domain.Tick{}, FormatUnknown, fmt.Errorf("%w: timestamp: %v", ErrMalformedLine, err)
	}
	ts := stamp.UnixMilli()
	rest := line[len(stampLayout):]

	switch rest[0] {
	case ';':
		tick, err := parseBar(ts, strings.Split(rest[1:], ";"))
		return tick, FormatBar, err
	case ' ':
		tick, err := parseTick(ts, strings.Split(rest[1:], ";"))
		return tick, FormatTick, err
	default:
		return domain.Tick{}, FormatUnknown, fmt.Errorf("%w: unexpected separator %q", ErrMalformedLine, rest[0])
	}
}

// parseBar reads O;H;L;C;V.
func parseBar(ts int64, fields []string) (domain.Tick, error) {
	if len(fields) != 5 {
		return domain.Tick{}, fmt.Errorf("%w: bar line has %d fields, want 5", ErrMalformedLine, len(fields))
	}
	nums, err := parseNumbers(fields[1:4])
	if err != nil {
		return domain.Tick{}, err
	}
	volume, err := parseVolume(fields[4])
	if err != nil {
		return domain.Tick{}, err
	}
	high, low, closePrice := nums[0], nums[1], nums[2]
	return domain.Tick{Timestamp: ts, Price: closePrice, Bid: low, Ask: high, Volume: volume}, nil
}

// parseTick reads fffffff;Last;Bid;Ask;V.
func parseTick(ts int64, fields []string) (domain.Tick, error) {
	if len(fields) < 5 {
		return domain.Tick{}, fmt.Errorf("%w: tick line has %d fields, want 5", ErrMalformedLine, len(fields))
	}
	ms, err := parseFraction(fields[0])
	if err != nil {
		return domain.Tick{}, err
	}
	nums, err := parseNumbers(fields[1:4])
	if err != nil {
		return domain.Tick{}, err
	}
	volume, err := parseVolume(fields[4])
	if err != nil {
		return domain.Tick{}, err
	}
	return domain.Tick{Timestamp: ts + ms, Price: nums[0], Bid: nums[1], Ask: nums[2], Volume: volume}, nil
}

// parseFraction converts a 100ns-resolution fraction of a second to milliseconds.
func parseFraction(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: sub-second field %q", ErrMalformedLine, s)
		}
	}
	for len(s) < 3 {
		s += "0"
	}
	ms, _ := strconv.ParseInt(s[:3], 10, 64)
	return ms, nil
}

func parseNumbers(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: price field %q", ErrMalformedLine, f)
		}
		out[i] = v
	}
	return out, nil
}

func parseVolume(field string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: volume field %q", ErrMalformedLine, field)
	}
	return int64(math.Round(v)), nil
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
