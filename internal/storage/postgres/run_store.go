package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
// Stats are stored as columns; profit_factor may hold 'Infinity'.
// The order config is stored as JSONB so a run can be replayed.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" || r.DatasetID == "" {
		return storage.ErrInvalidInput
	}
	orderConfig, err := json.Marshal(r.OrderConfig)
	if err != nil {
		return fmt.Errorf("encode order config: %w", err)
	}

	query := `
		INSERT INTO replay_runs (
			run_id, dataset_id, timeframe, plan, order_config,
			total_trades, winners, losers, win_rate, profit_factor, max_drawdown,
			realized_pnl, avg_holding_ticks, expectancy, sharpe_ratio,
			started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID,
		r.DatasetID,
		string(r.Timeframe),
		r.Plan,
		orderConfig,
		r.Stats.TotalTrades,
		r.Stats.Winners,
		r.Stats.Losers,
		r.Stats.WinRate,
		r.Stats.ProfitFactor,
		r.Stats.MaxDrawdown,
		r.Stats.RealizedPnl,
		r.Stats.AvgHoldingTicks,
		r.Analytics.Expectancy,
		r.Analytics.SharpeRatio,
		r.StartedAt,
		r.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert replay run: %w", err)
	}
	return nil
}

// GetByDataset retrieves all runs of a dataset ordered by started_at ASC.
func (s *RunStore) GetByDataset(ctx context.Context, datasetID string) ([]*domain.RunSummary, error) {
	query := `
		SELECT run_id, dataset_id, timeframe, plan, order_config,
			total_trades, winners, losers, win_rate, profit_factor, max_drawdown,
			realized_pnl, avg_holding_ticks, expectancy, sharpe_ratio,
			started_at, completed_at
		FROM replay_runs
		WHERE dataset_id = $1
		ORDER BY started_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("get runs by dataset: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var timeframe string
		var orderConfig []byte
		err := rows.Scan(
			&r.RunID,
			&r.DatasetID,
			&timeframe,
			&r.Plan,
			&orderConfig,
			&r.Stats.TotalTrades,
			&r.Stats.Winners,
			&r.Stats.Losers,
			&r.Stats.WinRate,
			&r.Stats.ProfitFactor,
			&r.Stats.MaxDrawdown,
			&r.Stats.RealizedPnl,
			&r.Stats.AvgHoldingTicks,
			&r.Analytics.Expectancy,
			&r.Analytics.SharpeRatio,
			&r.StartedAt,
			&r.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan replay run row: %w", err)
		}
		r.Timeframe = domain.Timeframe(timeframe)
		if err := json.Unmarshal(orderConfig, &r.OrderConfig); err != nil {
			return nil, fmt.Errorf("decode order config of run %s: %w", r.RunID, err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replay run rows: %w", err)
	}
	return runs, nil
}
