package memory

import (
	"context"
	"sort"
	"sync"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore.
type DatasetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Dataset
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		data: make(map[string]*domain.Dataset),
	}
}

// Insert adds a new dataset. Returns ErrDuplicateKey if dataset_id exists.
func (s *DatasetStore) Insert(_ context.Context, d *domain.Dataset) error {
	if d == nil || d.DatasetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DatasetID]; exists {
		return storage.ErrDuplicateKey
	}
	dCopy := *d
	s.data[d.DatasetID] = &dCopy
	return nil
}

// GetByID retrieves a dataset by its ID. Returns ErrNotFound if not exists.
func (s *DatasetStore) GetByID(_ context.Context, datasetID string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[datasetID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	dCopy := *d
	return &dCopy, nil
}

// List retrieves all datasets ordered by (first_tick_ms ASC, dataset_id ASC).
func (s *DatasetStore) List(_ context.Context) ([]*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Dataset, 0, len(s.data))
	for _, d := range s.data {
		dCopy := *d
		result = append(result, &dCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FirstTickMs != result[j].FirstTickMs {
			return result[i].FirstTickMs < result[j].FirstTickMs
		}
		return result[i].DatasetID < result[j].DatasetID
	})
	return result, nil
}

var _ storage.DatasetStore = (*DatasetStore)(nil)
