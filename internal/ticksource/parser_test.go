package ticksource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"tick-replay-lab/internal/domain"
)

func ms(y int, mo time.Month, d, h, mi, s int) int64 {
	return time.Date(y, mo, d, h, mi, s, 0, time.UTC).UnixMilli()
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   domain.Tick
		format Format
	}{
		{
			name:   "bar layout",
			line:   "20240102 093000;16800.25;16801.5;16799.75;16800.5;12",
			want:   domain.Tick{Timestamp: ms(2024, 1, 2, 9, 30, 0), Price: 16800.5, Bid: 16799.75, Ask: 16801.5, Volume: 12},
			format: FormatBar,
		},
		{
			name:   "tick layout with fraction",
			line:   "20240102 093000 1230000;16800.25;16800;16800.5;3",
			want:   domain.Tick{Timestamp: ms(2024, 1, 2, 9, 30, 0) + 123, Price: 16800.25, Bid: 16800, Ask: 16800.5, Volume: 3},
			format: FormatTick,
		},
		{
			name:   "tick layout short fraction",
			line:   "20240102 093000 5;100;99.75;100.25;1",
			want:   domain.Tick{Timestamp: ms(2024, 1, 2, 9, 30, 0) + 500, Price: 100, Bid: 99.75, Ask: 100.25, Volume: 1},
			format: FormatTick,
		},
		{
			name:   "trailing carriage return",
			line:   "20240102 093001;1;2;0.5;1.5;7\r",
			want:   domain.Tick{Timestamp: ms(2024, 1, 2, 9, 30, 1), Price: 1.5, Bid: 0.5, Ask: 2, Volume: 7},
			format: FormatBar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, format, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	lines := []string{
		"",
		"Date;Open;High;Low;Close;Volume",
		"20240102 093000",
		"20241302 093000;1;2;0.5;1.5;7", // month 13
		"20240102 093000;1;2;0.5;1.5",   // missing volume
		"20240102 093000;1;2;x;1.5;7",
		"20240102 093000;1;2;0.5;NaN;7",
		"20240102 093000;1;2;0.5;1.5;-1",
		"20240102 093000 12a;100;99;101;1",
		"20240102 093000|1;2;0.5;1.5;7",
	}
	for _, line := range lines {
		_, _, err := ParseLine(line)
		assert.ErrorIs(t, err, ErrMalformedLine, "line %q", line)
	}
}

func TestParse_Lenient(t *testing.T) {
	input := strings.Join([]string{
		"Date;Open;High;Low;Close;Volume",
		"20240102 093002;3;3;3;3;1",
		"",
		"garbage",
		"20240102 093000;1;1;1;1;1",
		"20240102 093000 0000000;9;9;9;1", // other layout
		"20240102 093001;2;2;2;2;1",
	}, "\r\n")

	res, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, FormatBar, res.Format)
	assert.Equal(t, 1, res.HeaderLines)
	assert.Equal(t, 2, res.Malformed)
	assert.Equal(t, 6, res.Lines)
	require.Len(t, res.Ticks, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{res.Ticks[0].Price, res.Ticks[1].Price, res.Ticks[2].Price})
}

func TestParse_Strict(t *testing.T) {
	input := "20240102 093000;1;1;1;1;1\nbroken line\n"

	_, err := Parse(strings.NewReader(input), Options{Strict: true})
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParse_StableForEqualTimestamps(t *testing.T) {
	input := "20240102 093000 0000000;1;1;1;1\n20240102 093000 0000000;2;2;2;1\n20240102 093000 0000000;3;3;3;1\n"

	res, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, res.Ticks, 3)
	for i, tk := range res.Ticks {
		assert.Equal(t, float64(i+1), tk.Price)
	}
}

func TestParse_UTF8BOM(t *testing.T) {
	input := "\ufeff20240102 093000;1;2;0.5;1.5;7\n"

	res, err := Parse(strings.NewReader(input), Options{Strict: true})
	require.NoError(t, err)
	require.Len(t, res.Ticks, 1)
	assert.Equal(t, 1.5, res.Ticks[0].Price)
}

func TestParse_UTF16(t *testing.T) {
	text := "20240102 093000;1;2;0.5;1.5;7\r\n20240102 093001;1;2;0.5;1.75;3\r\n"

	for _, endian := range []unicode.Endianness{unicode.LittleEndian, unicode.BigEndian} {
		encoded, err := unicode.UTF16(endian, unicode.UseBOM).NewEncoder().String(text)
		require.NoError(t, err)

		res, err := Parse(strings.NewReader(encoded), Options{Strict: true})
		require.NoError(t, err)
		require.Len(t, res.Ticks, 2)
		assert.Equal(t, 1.75, res.Ticks[1].Price)
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse(strings.NewReader("header only\n\n"), Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Parse(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NQ 03-24.Last.txt")
	require.NoError(t, os.WriteFile(path, []byte("20240102 093000;1;2;0.5;1.5;7\n"), 0o644))

	res, err := ParseFile(path, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Ticks, 1)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"), Options{})
	assert.Error(t, err)
}

func TestResultDataset(t *testing.T) {
	res, err := Parse(strings.NewReader("20240102 093000;100;101;99;100.5;3\n20240102 093100;100.5;102;100;101;4\n"), Options{})
	require.NoError(t, err)

	d := res.Dataset("nq", "/data/NQ 03-24.Last.txt", 42)
	assert.Equal(t, "NQ 03-24.Last.txt", d.SourceFile)
	assert.Equal(t, string(FormatBar), d.Format)
	assert.Equal(t, 2, d.TickCount)
	assert.Equal(t, res.Ticks[0].Timestamp, d.FirstTickMs)
	assert.Equal(t, res.Ticks[1].Timestamp, d.LastTickMs)
	assert.Equal(t, int64(42), d.CreatedAt)
	assert.Len(t, d.DatasetID, 64)

	again := res.Dataset("NQ", "other/dir/NQ 03-24.Last.txt", 99)
	assert.Equal(t, d.DatasetID, again.DatasetID, "ID ignores directory, case and import time")
}
