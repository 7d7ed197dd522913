package config

import (
	"context"
	"errors"
	"fmt"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/replay"
	"tick-replay-lab/internal/storage"
	"tick-replay-lab/internal/ticksource"
)

// ErrNoTickSource is returned when neither a tick file nor a dataset ID is given.
var ErrNoTickSource = errors.New("--tick-file or --dataset-id is required")

// TickSource names where a session's ticks come from. File wins over DatasetID.
type TickSource struct {
	File      string
	DatasetID string
	Symbol    string
	Strict    bool
}

// Loaded is the outcome of LoadTicks.
type Loaded struct {
	Ticks     []domain.Tick
	DatasetID string
	// Parse is set when the ticks came from a file.
	Parse *ticksource.Result
}

// LoadTicks reads ticks from the file, or from the tick store by dataset ID.
// A file's dataset ID is derived the same way cmd/ingest derives it.
func LoadTicks(ctx context.Context, src TickSource, ticks storage.TickStore) (*Loaded, error) {
	if src.File != "" {
		res, err := ticksource.ParseFile(src.File, ticksource.Options{Strict: src.Strict})
		if err != nil {
			return nil, err
		}
		if len(res.Ticks) == 0 {
			return nil, fmt.Errorf("%s: %w", src.File, replay.ErrNoTicks)
		}
		d := res.Dataset(src.Symbol, src.File, 0)
		return &Loaded{Ticks: res.Ticks, DatasetID: d.DatasetID, Parse: res}, nil
	}

	if src.DatasetID == "" {
		return nil, ErrNoTickSource
	}
	if ticks == nil {
		return nil, fmt.Errorf("load dataset %s: no tick store", src.DatasetID)
	}
	loaded, err := replay.NewLoader(ticks).Load(ctx, src.DatasetID)
	if err != nil {
		return nil, err
	}
	return &Loaded{Ticks: loaded, DatasetID: src.DatasetID}, nil
}
