package domain

// Tick is a single trade print from the historical feed.
// Immutable once parsed.
type Tick struct {
	Timestamp int64   `json:"timestamp"` // Unix timestamp in milliseconds (UTC)
	Price     float64 `json:"price"`     // last traded price
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    int64   `json:"volume"`
}

// Candle is an OHLCV aggregate of all ticks that fall in one timeframe bucket.
type Candle struct {
	Time      int64   `json:"time"` // bucket start, Unix seconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	TickCount int     `json:"tick_count"` // ticks folded into this candle
}

// BucketTime returns the candle bucket start (seconds) for a tick timestamp (ms).
func BucketTime(timestampMs int64, timeframeSeconds int64) int64 {
	width := timeframeSeconds * 1000
	bucket := timestampMs / width
	// floor for pre-epoch timestamps
	if timestampMs%width != 0 && timestampMs < 0 {
		bucket--
	}
	return bucket * timeframeSeconds
}
