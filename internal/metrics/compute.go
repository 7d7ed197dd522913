package metrics

import (
	"math"
	"sort"

	"tick-replay-lab/internal/domain"
)

// Analyze derives session analytics from realized stats and the round-trip ledger.
// Round trips must be in close order; streaks depend on it.
func Analyze(stats domain.TradeStats, trips []domain.RoundTrip) domain.SessionAnalytics {
	n := len(trips)
	out := domain.SessionAnalytics{RoundTrips: n}
	if stats.TotalTrades > 0 {
		out.Expectancy = computeExpectancy(stats)
	}
	if n == 0 {
		return out
	}

	pnls := make([]float64, n)
	mfe := make([]float64, n)
	mae := make([]float64, n)
	hold := make([]float64, n)
	for i, rt := range trips {
		pnls[i] = rt.Pnl
		mfe[i] = rt.MFE
		mae[i] = rt.MAE
		hold[i] = float64(rt.HoldingMs)
	}

	out.ConsecutiveWins = computeMaxConsecutive(pnls, func(p float64) bool { return p > 0 })
	out.ConsecutiveLosses = computeMaxConsecutive(pnls, func(p float64) bool { return p <= 0 })
	out.SharpeRatio = computeSharpe(pnls)
	out.AvgMFE = computeMean(mfe)
	out.AvgMAE = computeMean(mae)
	out.AvgHoldingMs = computeMean(hold)

	sorted := make([]float64, n)
	copy(sorted, pnls)
	sort.Float64s(sorted)
	out.MedianPnl = computePercentile(sorted, 0.50)

	return out
}

// computeExpectancy is the per-trade expected pnl from win rate and average win/loss.
func computeExpectancy(s domain.TradeStats) float64 {
	return s.AvgWin*s.WinRate + s.AvgLoss*(1-s.WinRate)
}

// computeSharpe is mean/stddev of per-trip pnl, unannualized.
// Returns 0 for fewer than 2 trips or zero dispersion.
func computeSharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := computeMean(pnls)
	std := computeStddev(pnls, mean)
	if std == 0 {
		return 0
	}
	return mean / std
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.50 = median).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxConsecutive finds the longest run of values matching pred.
func computeMaxConsecutive(values []float64, pred func(float64) bool) int {
	maxStreak := 0
	current := 0
	for _, v := range values {
		if pred(v) {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
