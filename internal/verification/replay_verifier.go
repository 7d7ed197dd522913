package verification

import (
	"context"
	"errors"
	"fmt"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/metrics"
	"tick-replay-lab/internal/replay"
	"tick-replay-lab/internal/session"
	"tick-replay-lab/internal/storage"
)

// ErrDatasetNotFound is returned when a run's dataset doesn't exist.
var ErrDatasetNotFound = errors.New("dataset not found")

// ReplayVerifier implements Verifier interface.
type ReplayVerifier struct {
	datasetStore storage.DatasetStore
	tickStore    storage.TickStore
	runStore     storage.RunStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	DatasetStore storage.DatasetStore
	TickStore    storage.TickStore
	RunStore     storage.RunStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		datasetStore: opts.DatasetStore,
		tickStore:    opts.TickStore,
		runStore:     opts.RunStore,
	}
}

// VerifyRun verifies a single run by replaying it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, run *domain.RunSummary) (*VerificationResult, error) {
	replayed, err := v.replayRun(ctx, run)
	if err != nil {
		return nil, err
	}

	divergences := CompareRunSummaries(run, replayed)
	return &VerificationResult{
		RunID:       run.RunID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		StoredPnl:   run.Stats.RealizedPnl,
		ReplayedPnl: replayed.Stats.RealizedPnl,
	}, nil
}

// VerifyDataset verifies all stored runs of a dataset.
// A run that cannot be replayed is reported as divergent.
func (v *ReplayVerifier) VerifyDataset(ctx context.Context, datasetID string) (*VerificationReport, error) {
	runs, err := v.runStore.GetByDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Results = append(report.Results, VerificationResult{
				RunID:     run.RunID,
				Match:     false,
				StoredPnl: run.Stats.RealizedPnl,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// replayRun re-executes the run's plan over the dataset's ticks.
func (v *ReplayVerifier) replayRun(ctx context.Context, stored *domain.RunSummary) (*domain.RunSummary, error) {
	dataset, err := v.datasetStore.GetByID(ctx, stored.DatasetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, stored.DatasetID)
		}
		return nil, err
	}

	ticks, err := replay.NewLoader(v.tickStore).Load(ctx, stored.DatasetID)
	if err != nil {
		return nil, err
	}

	plan, err := session.ParsePlan(stored.Plan)
	if err != nil {
		return nil, err
	}

	orderCfg := stored.OrderConfig
	sess, err := session.New(session.Options{
		Ticks:       ticks,
		DatasetID:   stored.DatasetID,
		Instrument:  domain.InstrumentFor(dataset.Symbol),
		OrderConfig: &orderCfg,
		Timeframe:   stored.Timeframe,
		Indicators:  []domain.IndicatorConfig{},
		Scheduler:   replay.NewManualScheduler(),
	})
	if err != nil {
		return nil, err
	}
	if err := sess.RunPlan(ctx, plan); err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	return &domain.RunSummary{
		RunID:       stored.RunID,
		DatasetID:   stored.DatasetID,
		Timeframe:   stored.Timeframe,
		Plan:        stored.Plan,
		OrderConfig: stored.OrderConfig,
		Stats:       snap.Stats,
		Analytics:   metrics.Analyze(snap.Stats, snap.RoundTrips),
	}, nil
}
