// Package instrumented wraps storage interfaces with query duration and error metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/observability"
	"tick-replay-lab/internal/storage"
)

// TickStore records metrics for every call to the wrapped store.
type TickStore struct {
	next storage.TickStore
	db   string
}

// NewTickStore wraps next; db labels the metrics ("clickhouse", "memory").
func NewTickStore(next storage.TickStore, db string) *TickStore {
	return &TickStore{next: next, db: db}
}

func (s *TickStore) InsertBulk(ctx context.Context, datasetID string, ticks []domain.Tick) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, datasetID, ticks)
	observability.RecordDBQuery(s.db, "ticks_insert_bulk", time.Since(start), err)
	return err
}

func (s *TickStore) GetByDataset(ctx context.Context, datasetID string) ([]domain.Tick, error) {
	start := time.Now()
	ticks, err := s.next.GetByDataset(ctx, datasetID)
	observability.RecordDBQuery(s.db, "ticks_get_by_dataset", time.Since(start), err)
	return ticks, err
}

func (s *TickStore) GetByTimeRange(ctx context.Context, datasetID string, start, end int64) ([]domain.Tick, error) {
	began := time.Now()
	ticks, err := s.next.GetByTimeRange(ctx, datasetID, start, end)
	observability.RecordDBQuery(s.db, "ticks_get_by_time_range", time.Since(began), err)
	return ticks, err
}

// DatasetStore records metrics for every call to the wrapped store.
type DatasetStore struct {
	next storage.DatasetStore
	db   string
}

// NewDatasetStore wraps next.
func NewDatasetStore(next storage.DatasetStore, db string) *DatasetStore {
	return &DatasetStore{next: next, db: db}
}

func (s *DatasetStore) Insert(ctx context.Context, d *domain.Dataset) error {
	start := time.Now()
	err := s.next.Insert(ctx, d)
	observability.RecordDBQuery(s.db, "datasets_insert", time.Since(start), err)
	return err
}

// GetByID does not count storage.ErrNotFound as a query error.
func (s *DatasetStore) GetByID(ctx context.Context, datasetID string) (*domain.Dataset, error) {
	start := time.Now()
	d, err := s.next.GetByID(ctx, datasetID)
	observability.RecordDBQuery(s.db, "datasets_get_by_id", time.Since(start), ignoreNotFound(err))
	return d, err
}

func (s *DatasetStore) List(ctx context.Context) ([]*domain.Dataset, error) {
	start := time.Now()
	list, err := s.next.List(ctx)
	observability.RecordDBQuery(s.db, "datasets_list", time.Since(start), err)
	return list, err
}

// RunStore records metrics for every call to the wrapped store.
type RunStore struct {
	next storage.RunStore
	db   string
}

// NewRunStore wraps next.
func NewRunStore(next storage.RunStore, db string) *RunStore {
	return &RunStore{next: next, db: db}
}

func (s *RunStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	observability.RecordDBQuery(s.db, "runs_insert", time.Since(start), err)
	return err
}

func (s *RunStore) GetByDataset(ctx context.Context, datasetID string) ([]*domain.RunSummary, error) {
	start := time.Now()
	runs, err := s.next.GetByDataset(ctx, datasetID)
	observability.RecordDBQuery(s.db, "runs_get_by_dataset", time.Since(start), err)
	return runs, err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

var (
	_ storage.TickStore    = (*TickStore)(nil)
	_ storage.DatasetStore = (*DatasetStore)(nil)
	_ storage.RunStore     = (*RunStore)(nil)
)
