package replay

import "tick-replay-lab/internal/domain"

// aggregator folds ticks into timeframe buckets.
// Single-step and rebuild paths both go through add, so they cannot diverge.
type aggregator struct {
	seconds    int64
	candles    []domain.Candle
	byTime     map[int64]int // bucket time -> index in candles
	boundaries []int         // tick indices that opened a new candle
}

func newAggregator(seconds int64) *aggregator {
	return &aggregator{
		seconds: seconds,
		byTime:  make(map[int64]int),
	}
}

// add folds tick (at tickIndex) into its bucket.
func (a *aggregator) add(tick domain.Tick, tickIndex int) {
	bucket := domain.BucketTime(tick.Timestamp, a.seconds)
	if i, ok := a.byTime[bucket]; ok {
		c := &a.candles[i]
		if tick.Price > c.High {
			c.High = tick.Price
		}
		if tick.Price < c.Low {
			c.Low = tick.Price
		}
		c.Close = tick.Price
		c.Volume += tick.Volume
		c.TickCount++
		return
	}

	a.byTime[bucket] = len(a.candles)
	a.candles = append(a.candles, domain.Candle{
		Time:      bucket,
		Open:      tick.Price,
		High:      tick.Price,
		Low:       tick.Price,
		Close:     tick.Price,
		Volume:    tick.Volume,
		TickCount: 1,
	})
	a.boundaries = append(a.boundaries, tickIndex)
}

// rebuild discards all state and aggregates ticks[0:upTo].
func (a *aggregator) rebuild(ticks []domain.Tick, upTo int) {
	a.reset()
	for i := 0; i < upTo; i++ {
		a.add(ticks[i], i)
	}
}

func (a *aggregator) reset() {
	a.candles = nil
	a.byTime = make(map[int64]int)
	a.boundaries = nil
}

// snapshot returns a copy of the candle set.
func (a *aggregator) snapshot() []domain.Candle {
	out := make([]domain.Candle, len(a.candles))
	copy(out, a.candles)
	return out
}

// boundaryBefore returns the last candle boundary strictly before index, or 0.
func (a *aggregator) boundaryBefore(index int) int {
	for i := len(a.boundaries) - 1; i >= 0; i-- {
		if a.boundaries[i] < index {
			return a.boundaries[i]
		}
	}
	return 0
}
