package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// ErrNoDataset is returned when a run summary has no dataset to attach to.
var ErrNoDataset = errors.New("run summary requires a dataset id")

// RunInput is what a finished headless replay hands to the Aggregator.
type RunInput struct {
	DatasetID   string
	Timeframe   domain.Timeframe
	Plan        string
	OrderConfig domain.OrderConfig
	Stats       domain.TradeStats
	RoundTrips  []domain.RoundTrip
	StartedAt   int64 // ms
	CompletedAt int64 // ms
}

// Aggregator turns finished runs into stored RunSummary rows.
type Aggregator struct {
	runStore storage.RunStore
	newID    func() string
}

// NewAggregator creates a new run aggregator. runStore may be nil, in which case
// ComputeAndStore only computes.
func NewAggregator(runStore storage.RunStore) *Aggregator {
	return &Aggregator{
		runStore: runStore,
		newID:    func() string { return uuid.NewString() },
	}
}

// Summarize builds the run summary for in.
func (a *Aggregator) Summarize(in RunInput) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:       a.newID(),
		DatasetID:   in.DatasetID,
		Timeframe:   in.Timeframe,
		Plan:        in.Plan,
		OrderConfig: in.OrderConfig,
		Stats:       in.Stats,
		Analytics:   Analyze(in.Stats, in.RoundTrips),
		StartedAt:   in.StartedAt,
		CompletedAt: in.CompletedAt,
	}
}

// ComputeAndStore summarizes the run and persists it when a store is configured.
func (a *Aggregator) ComputeAndStore(ctx context.Context, in RunInput) (*domain.RunSummary, error) {
	summary := a.Summarize(in)
	if a.runStore == nil {
		return summary, nil
	}
	if in.DatasetID == "" {
		return nil, ErrNoDataset
	}
	if err := a.runStore.Insert(ctx, summary); err != nil {
		return nil, fmt.Errorf("store run summary: %w", err)
	}
	return summary, nil
}
