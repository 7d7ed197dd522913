// Package verification re-runs stored replay runs and checks that the
// recomputed statistics match what was stored.
package verification

import (
	"context"
	"math"

	"tick-replay-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"` // stored value
	Actual   any    `json:"actual"`   // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string            `json:"run_id"`
	Match       bool              `json:"match"` // true if all fields match
	Divergences []FieldDivergence `json:"divergences,omitempty"`
	StoredPnl   float64           `json:"stored_pnl"`
	ReplayedPnl float64           `json:"replayed_pnl"`
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  `json:"total_runs"`
	MatchedRuns   int                  `json:"matched_runs"`
	DivergentRuns int                  `json:"divergent_runs"`
	Results       []VerificationResult `json:"results"`
}

// Verifier interface for run replay verification.
type Verifier interface {
	// VerifyRun replays a stored run with its timeframe, order config and plan,
	// and compares the recomputed statistics field by field.
	VerifyRun(ctx context.Context, run *domain.RunSummary) (*VerificationResult, error)

	// VerifyDataset verifies every stored run of a dataset.
	VerifyDataset(ctx context.Context, datasetID string) (*VerificationReport, error)
}

// CompareRunSummaries compares the persisted fields of two run summaries.
// Uses FloatTolerance for float64 comparisons.
func CompareRunSummaries(stored, replayed *domain.RunSummary) []FieldDivergence {
	var divergences []FieldDivergence

	intField := func(name string, a, b int) {
		if a != b {
			divergences = append(divergences, FieldDivergence{Field: name, Expected: a, Actual: b})
		}
	}
	floatField := func(name string, a, b float64) {
		if !floatEquals(a, b) {
			divergences = append(divergences, FieldDivergence{Field: name, Expected: finite(a), Actual: finite(b)})
		}
	}

	if stored.DatasetID != replayed.DatasetID {
		divergences = append(divergences, FieldDivergence{
			Field:    "DatasetID",
			Expected: stored.DatasetID,
			Actual:   replayed.DatasetID,
		})
	}

	// Trade statistics
	intField("TotalTrades", stored.Stats.TotalTrades, replayed.Stats.TotalTrades)
	intField("Winners", stored.Stats.Winners, replayed.Stats.Winners)
	intField("Losers", stored.Stats.Losers, replayed.Stats.Losers)
	floatField("WinRate", stored.Stats.WinRate, replayed.Stats.WinRate)
	floatField("ProfitFactor", stored.Stats.ProfitFactor, replayed.Stats.ProfitFactor)
	floatField("MaxDrawdown", stored.Stats.MaxDrawdown, replayed.Stats.MaxDrawdown)
	floatField("RealizedPnl", stored.Stats.RealizedPnl, replayed.Stats.RealizedPnl)
	floatField("AvgHoldingTicks", stored.Stats.AvgHoldingTicks, replayed.Stats.AvgHoldingTicks)

	// Analytics
	floatField("Expectancy", stored.Analytics.Expectancy, replayed.Analytics.Expectancy)
	floatField("SharpeRatio", stored.Analytics.SharpeRatio, replayed.Analytics.SharpeRatio)

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// Equal infinities match.
func floatEquals(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= FloatTolerance
}

// finite keeps divergences JSON-encodable; infinities become strings.
func finite(v float64) any {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return v
}
