package replay

import (
	"context"
	"fmt"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// Loader reads a dataset's ticks from storage in replay order.
type Loader struct {
	tickStore storage.TickStore
}

// NewLoader creates a new tick loader.
func NewLoader(tickStore storage.TickStore) *Loader {
	return &Loader{tickStore: tickStore}
}

// Load returns all ticks of a dataset, ordered by timestamp ASC.
// Returns ErrNoTicks when the dataset is empty.
func (l *Loader) Load(ctx context.Context, datasetID string) ([]domain.Tick, error) {
	ticks, err := l.tickStore.GetByDataset(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("load ticks for %s: %w", datasetID, err)
	}
	return prepare(ticks)
}

// LoadRange returns the ticks of a dataset within [from, to] (inclusive, ms).
func (l *Loader) LoadRange(ctx context.Context, datasetID string, from, to int64) ([]domain.Tick, error) {
	ticks, err := l.tickStore.GetByTimeRange(ctx, datasetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load ticks for %s: %w", datasetID, err)
	}
	return prepare(ticks)
}

func prepare(ticks []domain.Tick) ([]domain.Tick, error) {
	if len(ticks) == 0 {
		return nil, ErrNoTicks
	}
	if err := ValidateOrder(ticks); err != nil {
		SortTicks(ticks)
	}
	return ticks, nil
}
