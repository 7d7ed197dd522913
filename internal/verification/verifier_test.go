package verification

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/metrics"
	"tick-replay-lab/internal/replay"
	"tick-replay-lab/internal/session"
	"tick-replay-lab/internal/storage/memory"
)

const testDataset = "ds-verify"

type fixture struct {
	datasets *memory.DatasetStore
	ticks    *memory.TickStore
	runs     *memory.RunStore
	verifier *ReplayVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		datasets: memory.NewDatasetStore(),
		ticks:    memory.NewTickStore(),
		runs:     memory.NewRunStore(),
	}

	prices := []float64{100, 101, 102, 101.5, 103, 104, 102, 99, 98, 100, 105, 106}
	ticks := make([]domain.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = domain.Tick{Timestamp: int64(i) * 1000, Price: p, Bid: p - 0.25, Ask: p + 0.25, Volume: 1}
	}
	require.NoError(t, f.ticks.InsertBulk(ctx, testDataset, ticks))
	require.NoError(t, f.datasets.Insert(ctx, &domain.Dataset{
		DatasetID:   testDataset,
		Symbol:      "NQ",
		TickCount:   len(ticks),
		FirstTickMs: ticks[0].Timestamp,
		LastTickMs:  ticks[len(ticks)-1].Timestamp,
	}))

	f.verifier = NewReplayVerifier(ReplayVerifierOptions{
		DatasetStore: f.datasets,
		TickStore:    f.ticks,
		RunStore:     f.runs,
	})
	return f
}

// storeRun executes plan the way the replay command does and stores the summary.
func (f *fixture) storeRun(t *testing.T, plan string) *domain.RunSummary {
	t.Helper()
	ctx := context.Background()

	ticks, err := replay.NewLoader(f.ticks).Load(ctx, testDataset)
	require.NoError(t, err)
	orders, err := session.ParsePlan(plan)
	require.NoError(t, err)

	cfg := domain.DefaultOrderConfig()
	sess, err := session.New(session.Options{
		Ticks:       ticks,
		DatasetID:   testDataset,
		Instrument:  domain.InstrumentFor("NQ"),
		OrderConfig: &cfg,
		Timeframe:   domain.DefaultTimeframe,
		Scheduler:   replay.NewManualScheduler(),
	})
	require.NoError(t, err)
	require.NoError(t, sess.RunPlan(ctx, orders))

	snap := sess.Snapshot()
	summary, err := metrics.NewAggregator(f.runs).ComputeAndStore(ctx, metrics.RunInput{
		DatasetID:   testDataset,
		Timeframe:   domain.DefaultTimeframe,
		Plan:        plan,
		OrderConfig: cfg,
		Stats:       snap.Stats,
		RoundTrips:  snap.RoundTrips,
	})
	require.NoError(t, err)
	return summary
}

func TestCompareRunSummaries_ExactMatch(t *testing.T) {
	run := &domain.RunSummary{
		DatasetID: "ds",
		Stats: domain.TradeStats{
			TotalTrades:  4,
			Winners:      3,
			Losers:       1,
			WinRate:      0.75,
			ProfitFactor: math.Inf(1),
			RealizedPnl:  250,
		},
		Analytics: domain.SessionAnalytics{Expectancy: 62.5},
	}
	copied := *run

	assert.Empty(t, CompareRunSummaries(run, &copied))
}

func TestCompareRunSummaries_WithinTolerance(t *testing.T) {
	stored := &domain.RunSummary{Stats: domain.TradeStats{RealizedPnl: 100}}
	replayed := &domain.RunSummary{Stats: domain.TradeStats{RealizedPnl: 100 + FloatTolerance/2}}

	assert.Empty(t, CompareRunSummaries(stored, replayed))
}

func TestCompareRunSummaries_Divergence(t *testing.T) {
	stored := &domain.RunSummary{
		DatasetID: "ds",
		Stats:     domain.TradeStats{TotalTrades: 2, RealizedPnl: 100},
	}
	replayed := &domain.RunSummary{
		DatasetID: "ds",
		Stats:     domain.TradeStats{TotalTrades: 3, RealizedPnl: 90},
	}

	divs := CompareRunSummaries(stored, replayed)
	require.Len(t, divs, 2)
	assert.Equal(t, "TotalTrades", divs[0].Field)
	assert.Equal(t, 2, divs[0].Expected)
	assert.Equal(t, 3, divs[0].Actual)
	assert.Equal(t, "RealizedPnl", divs[1].Field)
}

func TestVerifyRun_Match(t *testing.T) {
	f := newFixture(t)
	run := f.storeRun(t, "buy:1,sell:5,sell:7,flatten:10")
	require.Positive(t, run.Stats.TotalTrades)

	result, err := f.verifier.VerifyRun(context.Background(), run)
	require.NoError(t, err)
	assert.True(t, result.Match, "divergences: %+v", result.Divergences)
	assert.Equal(t, run.RunID, result.RunID)
	assert.InDelta(t, run.Stats.RealizedPnl, result.ReplayedPnl, FloatTolerance)
}

func TestVerifyRun_TamperedPnl(t *testing.T) {
	f := newFixture(t)
	run := f.storeRun(t, "buy:1,flatten:10")

	tampered := *run
	tampered.Stats.RealizedPnl += 500

	result, err := f.verifier.VerifyRun(context.Background(), &tampered)
	require.NoError(t, err)
	assert.False(t, result.Match)
	require.Len(t, result.Divergences, 1)
	assert.Equal(t, "RealizedPnl", result.Divergences[0].Field)
	assert.Equal(t, run.Stats.RealizedPnl, result.ReplayedPnl)
}

func TestVerifyRun_UnknownDataset(t *testing.T) {
	f := newFixture(t)

	_, err := f.verifier.VerifyRun(context.Background(), &domain.RunSummary{RunID: "r", DatasetID: "missing"})
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestVerifyDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.storeRun(t, "buy:1,flatten:10")
	f.storeRun(t, "sell:2,buy:8")

	// a run whose plan no longer parses is reported, not fatal
	require.NoError(t, f.runs.Insert(ctx, &domain.RunSummary{
		RunID:     "broken",
		DatasetID: testDataset,
		Timeframe: domain.DefaultTimeframe,
		Plan:      "hold:3",
	}))

	report, err := f.verifier.VerifyDataset(ctx, testDataset)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalRuns)
	assert.Equal(t, 2, report.MatchedRuns)
	assert.Equal(t, 1, report.DivergentRuns)

	var broken *VerificationResult
	for i := range report.Results {
		if report.Results[i].RunID == "broken" {
			broken = &report.Results[i]
		}
	}
	require.NotNil(t, broken)
	assert.False(t, broken.Match)
	assert.Equal(t, "Error", broken.Divergences[0].Field)
}

func TestCompareRunSummaries_InfiniteProfitFactor(t *testing.T) {
	stored := &domain.RunSummary{Stats: domain.TradeStats{ProfitFactor: math.Inf(1)}}
	replayed := &domain.RunSummary{Stats: domain.TradeStats{ProfitFactor: 2}}

	divs := CompareRunSummaries(stored, replayed)
	require.Len(t, divs, 1)
	assert.Equal(t, "Infinity", divs[0].Expected)
	assert.Equal(t, 2.0, divs[0].Actual)
}
