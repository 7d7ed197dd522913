package storage

import (
	"context"

	"tick-replay-lab/internal/domain"
)

// TickStore provides access to the ticks time series.
type TickStore interface {
	// InsertBulk stores all ticks of a dataset in feed order.
	// Returns ErrDuplicateKey if the dataset already has ticks.
	InsertBulk(ctx context.Context, datasetID string, ticks []domain.Tick) error

	// GetByDataset retrieves all ticks of a dataset, ordered by (timestamp ASC, feed order).
	GetByDataset(ctx context.Context, datasetID string) ([]domain.Tick, error)

	// GetByTimeRange retrieves ticks of a dataset within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, datasetID string, start, end int64) ([]domain.Tick, error)
}

// DatasetStore provides access to the datasets catalog.
type DatasetStore interface {
	// Insert adds a new dataset. Returns ErrDuplicateKey if dataset_id exists.
	Insert(ctx context.Context, d *domain.Dataset) error

	// GetByID retrieves a dataset by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, datasetID string) (*domain.Dataset, error)

	// List retrieves all datasets ordered by (first_tick_ms ASC, dataset_id ASC).
	List(ctx context.Context) ([]*domain.Dataset, error)
}

// RunStore provides access to replay_runs storage.
type RunStore interface {
	// Insert adds a run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunSummary) error

	// GetByDataset retrieves all runs of a dataset ordered by started_at ASC.
	GetByDataset(ctx context.Context, datasetID string) ([]*domain.RunSummary, error)
}
