package clickhouse

import (
	"context"
	"fmt"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
// Feed order among ticks sharing a millisecond is kept in the seq column.
type TickStore struct {
	conn      *Conn
	batchSize int
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn, batchSize: 100_000}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk stores all ticks of a dataset. Fails if the dataset already has ticks.
func (s *TickStore) InsertBulk(ctx context.Context, datasetID string, ticks []domain.Tick) error {
	if datasetID == "" {
		return storage.ErrInvalidInput
	}
	if len(ticks) == 0 {
		return nil
	}

	// MergeTree does not enforce uniqueness
	exists, err := s.exists(ctx, datasetID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	for start := 0; start < len(ticks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ticks) {
			end = len(ticks)
		}
		if err := s.sendBatch(ctx, datasetID, ticks[start:end], start); err != nil {
			return err
		}
	}

	return nil
}

func (s *TickStore) sendBatch(ctx context.Context, datasetID string, ticks []domain.Tick, seqOffset int) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ticks (
			dataset_id, seq, timestamp_ms, price, bid, ask, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, t := range ticks {
		err = batch.Append(
			datasetID, uint64(seqOffset+i), t.Timestamp,
			t.Price, t.Bid, t.Ask, t.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByDataset retrieves all ticks of a dataset, ordered by timestamp ASC.
func (s *TickStore) GetByDataset(ctx context.Context, datasetID string) ([]domain.Tick, error) {
	query := `
		SELECT timestamp_ms, price, bid, ask, volume
		FROM ticks
		WHERE dataset_id = ?
		ORDER BY timestamp_ms ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query by dataset: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// GetByTimeRange retrieves ticks of a dataset within [start, end] (inclusive).
func (s *TickStore) GetByTimeRange(ctx context.Context, datasetID string, start, end int64) ([]domain.Tick, error) {
	query := `
		SELECT timestamp_ms, price, bid, ask, volume
		FROM ticks
		WHERE dataset_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, datasetID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

func (s *TickStore) exists(ctx context.Context, datasetID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM ticks WHERE dataset_id = ?`, datasetID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTicks(rows chRows) ([]domain.Tick, error) {
	var ticks []domain.Tick

	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.Timestamp, &t.Price, &t.Bid, &t.Ask, &t.Volume); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		ticks = append(ticks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	return ticks, nil
}
