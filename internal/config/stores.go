package config

import (
	"context"
	"errors"
	"fmt"

	"tick-replay-lab/internal/storage"
	chstore "tick-replay-lab/internal/storage/clickhouse"
	"tick-replay-lab/internal/storage/instrumented"
	"tick-replay-lab/internal/storage/memory"
	"tick-replay-lab/internal/storage/migrations"
	pgstore "tick-replay-lab/internal/storage/postgres"
)

// ErrMissingDSN is returned when database storage is selected without both DSNs.
var ErrMissingDSN = errors.New("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")

// StoreConfig selects the storage backend.
type StoreConfig struct {
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool
	// Migrate applies the embedded migrations before the stores are built.
	Migrate bool
}

// Stores holds every store the binaries use.
type Stores struct {
	Ticks    storage.TickStore
	Datasets storage.DatasetStore
	Runs     storage.RunStore
}

// OpenStores builds the stores for cfg. The returned cleanup closes connections.
// Database-backed stores are wrapped with query metrics.
func OpenStores(ctx context.Context, cfg StoreConfig) (*Stores, func(), error) {
	if cfg.UseMemory {
		return MemoryStores(), func() {}, nil
	}
	if cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "" {
		return nil, nil, ErrMissingDSN
	}

	// PostgreSQL: dataset catalog and run summaries
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	// ClickHouse: tick time series
	var chConn *chstore.Conn
	if cfg.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &Stores{
		Ticks:    instrumented.NewTickStore(chstore.NewTickStore(chConn), "clickhouse"),
		Datasets: instrumented.NewDatasetStore(pgstore.NewDatasetStore(pool), "postgres"),
		Runs:     instrumented.NewRunStore(pgstore.NewRunStore(pool), "postgres"),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// MemoryStores returns empty in-memory stores.
func MemoryStores() *Stores {
	return &Stores{
		Ticks:    memory.NewTickStore(),
		Datasets: memory.NewDatasetStore(),
		Runs:     memory.NewRunStore(),
	}
}
