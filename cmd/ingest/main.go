// Package main imports NinjaTrader tick exports: each file is parsed, given a
// deterministic dataset ID, and stored as a dataset row plus its ticks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tick-replay-lab/internal/config"
	"tick-replay-lab/internal/idhash"
	"tick-replay-lab/internal/storage"
	"tick-replay-lab/internal/ticksource"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
	}

	symbol := flag.String("symbol", config.Env("SYMBOL", "NQ"), "Instrument root symbol")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage (dry run)")
	migrate := flag.Bool("migrate", false, "Apply database migrations before importing")
	strict := flag.Bool("strict", false, "Fail on the first malformed line instead of skipping it")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] FILE...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	files := flag.Args()
	if len(files) == 0 {
		if f := os.Getenv("TICK_FILE"); f != "" {
			files = []string{f}
		}
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := config.OpenStores(ctx, config.StoreConfig{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     *useMemory,
		Migrate:       *migrate,
	})
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	imp := &importer{stores: stores, symbol: *symbol, strict: *strict, logger: logger}
	failed := 0
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		if err := imp.importFile(ctx, path); err != nil {
			logger.Printf("FAILED %s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		logger.Fatalf("%d of %d files failed", failed, len(files))
	}
	logger.Printf("Imported %d files", len(files))
}

type importer struct {
	stores *config.Stores
	symbol string
	strict bool
	logger *log.Logger
}

// importFile stores one file. A dataset that already exists is skipped, so
// re-running over the same directory is safe.
func (im *importer) importFile(ctx context.Context, path string) error {
	res, err := ticksource.ParseFile(path, ticksource.Options{Strict: im.strict})
	if err != nil {
		return err
	}
	if len(res.Ticks) == 0 {
		return fmt.Errorf("no ticks in %s", path)
	}

	d := res.Dataset(im.symbol, path, time.Now().UnixMilli())
	im.logger.Printf("%s: %d ticks (%s), %d header lines, %d malformed, dataset %s",
		d.SourceFile, d.TickCount, res.Format, res.HeaderLines, res.Malformed, idhash.ShortID(d.DatasetID))

	if _, err := im.stores.Datasets.GetByID(ctx, d.DatasetID); err == nil {
		im.logger.Printf("%s: dataset already imported, skipping", d.SourceFile)
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check dataset: %w", err)
	}

	// ticks first: a dataset row only appears once its ticks are complete
	if err := im.stores.Ticks.InsertBulk(ctx, d.DatasetID, res.Ticks); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("insert ticks: %w", err)
	}
	if err := im.stores.Datasets.Insert(ctx, d); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	im.logger.Printf("%s: stored as %s", d.SourceFile, d.DatasetID)
	return nil
}
