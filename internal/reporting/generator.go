package reporting

import (
	"context"
	"sort"
	"time"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	datasetStore storage.DatasetStore
	runStore     storage.RunStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(datasetStore storage.DatasetStore, runStore storage.RunStore) *Generator {
	return &Generator{
		datasetStore: datasetStore,
		runStore:     runStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate reports on every dataset, or only on datasetIDs when given.
// Unknown IDs return storage.ErrNotFound.
func (g *Generator) Generate(ctx context.Context, datasetIDs ...string) (*Report, error) {
	datasets, err := g.loadDatasets(ctx, datasetIDs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:  g.now(),
		DatasetCount: len(datasets),
		Datasets:     make([]DatasetRow, 0, len(datasets)),
		Runs:         []RunRow{},
		Best:         []RunRow{},
	}

	for _, d := range datasets {
		runs, err := g.runStore.GetByDataset(ctx, d.DatasetID)
		if err != nil {
			return nil, err
		}

		report.Datasets = append(report.Datasets, DatasetRow{
			DatasetID:   d.DatasetID,
			Symbol:      d.Symbol,
			SourceFile:  d.SourceFile,
			Format:      d.Format,
			TickCount:   d.TickCount,
			FirstTickMs: d.FirstTickMs,
			LastTickMs:  d.LastTickMs,
			Runs:        len(runs),
		})

		var best *RunRow
		for _, r := range runs {
			row := runRow(r)
			report.Runs = append(report.Runs, row)
			if best == nil || row.RealizedPnl > best.RealizedPnl {
				best = &row
			}
		}
		if best != nil {
			report.Best = append(report.Best, *best)
		}
	}
	report.RunCount = len(report.Runs)
	return report, nil
}

func (g *Generator) loadDatasets(ctx context.Context, ids []string) ([]*domain.Dataset, error) {
	if len(ids) == 0 {
		return g.datasetStore.List(ctx)
	}
	out := make([]*domain.Dataset, 0, len(ids))
	for _, id := range ids {
		d, err := g.datasetStore.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	// Sort by first tick, then dataset_id, matching List
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FirstTickMs != out[j].FirstTickMs {
			return out[i].FirstTickMs < out[j].FirstTickMs
		}
		return out[i].DatasetID < out[j].DatasetID
	})
	return out, nil
}

func runRow(r *domain.RunSummary) RunRow {
	return RunRow{
		RunID:        r.RunID,
		DatasetID:    r.DatasetID,
		Timeframe:    string(r.Timeframe),
		Plan:         r.Plan,
		RoundTrips:   r.Analytics.RoundTrips,
		WinRate:      r.Stats.WinRate,
		RealizedPnl:  r.Stats.RealizedPnl,
		ProfitFactor: r.Stats.ProfitFactor,
		MaxDrawdown:  r.Stats.MaxDrawdown,
		Expectancy:   r.Analytics.Expectancy,
		SharpeRatio:  r.Analytics.SharpeRatio,
		StartedAt:    r.StartedAt,
	}
}
