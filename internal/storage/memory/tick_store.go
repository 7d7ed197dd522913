package memory

import (
	"context"
	"sort"
	"sync"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Tick // keyed by dataset_id, feed order
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{
		data: make(map[string][]domain.Tick),
	}
}

// InsertBulk stores all ticks of a dataset. Fails if the dataset already has ticks.
func (s *TickStore) InsertBulk(_ context.Context, datasetID string, ticks []domain.Tick) error {
	if datasetID == "" {
		return storage.ErrInvalidInput
	}
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[datasetID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]domain.Tick, len(ticks))
	copy(stored, ticks)
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Timestamp < stored[j].Timestamp
	})
	s.data[datasetID] = stored

	return nil
}

// GetByDataset retrieves all ticks of a dataset, ordered by timestamp ASC.
func (s *TickStore) GetByDataset(_ context.Context, datasetID string) ([]domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[datasetID]
	result := make([]domain.Tick, len(stored))
	copy(result, stored)
	return result, nil
}

// GetByTimeRange retrieves ticks of a dataset within [start, end] (inclusive).
func (s *TickStore) GetByTimeRange(_ context.Context, datasetID string, start, end int64) ([]domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Tick
	for _, t := range s.data[datasetID] {
		if t.Timestamp >= start && t.Timestamp <= end {
			result = append(result, t)
		}
	}
	return result, nil
}

var _ storage.TickStore = (*TickStore)(nil)
