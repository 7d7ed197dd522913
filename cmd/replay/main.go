// Package main runs a headless replay: the whole tick stream is processed at
// full speed with a scripted order plan, then stats and analytics are printed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tick-replay-lab/internal/config"
	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/metrics"
	"tick-replay-lab/internal/replay"
	"tick-replay-lab/internal/session"
	"tick-replay-lab/internal/storage"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
	}

	tickFile := flag.String("tick-file", os.Getenv("TICK_FILE"), "NinjaTrader tick export to replay")
	datasetID := flag.String("dataset-id", os.Getenv("DATASET_ID"), "Stored dataset to replay (when --tick-file is empty)")
	symbol := flag.String("symbol", config.Env("SYMBOL", "NQ"), "Instrument root symbol")
	planFlag := flag.String("plan", "", `Order plan, e.g. "buy:100,sell:250:2,flatten:400" (action:tick[:size])`)
	timeframe := flag.String("timeframe", config.Env("TIMEFRAME", string(domain.DefaultTimeframe)), "Candle timeframe")
	slPoints := flag.Float64("sl", -1, "Stop loss points (negative keeps the default, 0 disables)")
	tpPoints := flag.Float64("tp", -1, "Take profit points (negative keeps the default, 0 disables)")
	trailMode := flag.String("trail", "", "Enable trailing stop: fixed, 1-step, 2-step or 3-step")
	storeRun := flag.Bool("store-run", false, "Persist the run summary")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	plan, err := session.ParsePlan(*planFlag)
	if err != nil {
		logger.Fatal(err)
	}
	tf, err := domain.ParseTimeframe(*timeframe)
	if err != nil {
		logger.Fatal(err)
	}
	orderCfg, err := orderConfig(*slPoints, *tpPoints, *trailMode)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// a tick file with no run to store needs no database
	memoryOnly := *useMemory || (*tickFile != "" && !*storeRun)
	stores, cleanup, err := config.OpenStores(ctx, config.StoreConfig{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     memoryOnly,
	})
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	loaded, err := config.LoadTicks(ctx, config.TickSource{
		File:      *tickFile,
		DatasetID: *datasetID,
		Symbol:    *symbol,
	}, stores.Ticks)
	if err != nil {
		logger.Fatalf("load ticks: %v", err)
	}
	logger.Printf("Replaying %d ticks (dataset %s, timeframe %s, %d planned orders)",
		len(loaded.Ticks), loaded.DatasetID, tf, len(plan))

	startedAt := time.Now()
	sess, err := session.New(session.Options{
		Ticks:       loaded.Ticks,
		DatasetID:   loaded.DatasetID,
		Instrument:  domain.InstrumentFor(*symbol),
		OrderConfig: &orderCfg,
		Timeframe:   tf,
		Scheduler:   replay.NewManualScheduler(),
	})
	if err != nil {
		logger.Fatalf("create session: %v", err)
	}
	if err := sess.RunPlan(ctx, plan); err != nil {
		logger.Fatalf("replay failed: %v", err)
	}
	completedAt := time.Now()

	var runStore storage.RunStore
	if *storeRun {
		runStore = stores.Runs
	}
	snap := sess.Snapshot()
	summary, err := metrics.NewAggregator(runStore).ComputeAndStore(ctx, metrics.RunInput{
		DatasetID:   loaded.DatasetID,
		Timeframe:   tf,
		Plan:        *planFlag,
		OrderConfig: orderCfg,
		Stats:       snap.Stats,
		RoundTrips:  snap.RoundTrips,
		StartedAt:   startedAt.UnixMilli(),
		CompletedAt: completedAt.UnixMilli(),
	})
	if err != nil {
		logger.Fatalf("summarize run: %v", err)
	}
	if runStore != nil {
		logger.Printf("Stored run %s", summary.RunID)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
		return
	}
	printSummary(summary, snap, completedAt.Sub(startedAt))
}

// orderConfig applies the command-line overrides to the default order config.
func orderConfig(sl, tp float64, trail string) (domain.OrderConfig, error) {
	var patch domain.OrderConfigPatch
	if sl >= 0 {
		enabled := sl > 0
		patch.SLEnabled = &enabled
		patch.SLPoints = &sl
	}
	if tp >= 0 {
		enabled := tp > 0
		patch.TPEnabled = &enabled
		patch.TPPoints = &tp
	}
	if trail != "" {
		mode := domain.TrailMode(trail)
		if !mode.Valid() {
			return domain.OrderConfig{}, fmt.Errorf("unknown trail mode %q", trail)
		}
		enabled := true
		patch.TrailEnabled = &enabled
		patch.TrailMode = &mode
	}
	return patch.Apply(domain.DefaultOrderConfig()), nil
}

func printSummary(s *domain.RunSummary, snap session.Snapshot, took time.Duration) {
	st, an := s.Stats, s.Analytics
	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Run ID:             %s\n", s.RunID)
	fmt.Printf("Dataset ID:         %s\n", s.DatasetID)
	fmt.Printf("Ticks:              %d\n", snap.State.TotalTicks)
	fmt.Printf("Candles (%s):      %d\n", s.Timeframe, len(snap.Candles))
	fmt.Printf("Elapsed:            %v\n", took.Round(time.Millisecond))
	fmt.Printf("\n--- Trades ---\n")
	fmt.Printf("Fills:              %d\n", len(snap.Trades))
	fmt.Printf("Round trips:        %d\n", an.RoundTrips)
	fmt.Printf("Winners / Losers:   %d / %d\n", st.Winners, st.Losers)
	fmt.Printf("Win rate:           %.1f%%\n", st.WinRate*100)
	fmt.Printf("Realized P&L:       %.2f\n", st.RealizedPnl)
	fmt.Printf("Avg win / loss:     %.2f / %.2f\n", st.AvgWin, st.AvgLoss)
	fmt.Printf("Largest win / loss: %.2f / %.2f\n", st.LargestWin, st.LargestLoss)
	fmt.Printf("Profit factor:      %s\n", formatFactor(st.ProfitFactor))
	fmt.Printf("Max drawdown:       %.2f\n", st.MaxDrawdown)
	fmt.Printf("\n--- Analytics ---\n")
	fmt.Printf("Expectancy:         %.2f\n", an.Expectancy)
	fmt.Printf("Sharpe (per trip):  %.3f\n", an.SharpeRatio)
	fmt.Printf("Max consec. W / L:  %d / %d\n", an.ConsecutiveWins, an.ConsecutiveLosses)
	fmt.Printf("Avg MFE / MAE:      %.2f / %.2f\n", an.AvgMFE, an.AvgMAE)
	fmt.Printf("Avg holding:        %v\n", time.Duration(an.AvgHoldingMs)*time.Millisecond)
	fmt.Printf("Median P&L:         %.2f\n", an.MedianPnl)
	if !snap.Position.IsFlat() {
		fmt.Printf("\nOpen position:      %s %d @ %.2f (unrealized %.2f)\n",
			snap.Position.Side, snap.Position.Size, snap.Position.EntryPrice, snap.Position.UnrealizedPnl)
	}
}

func formatFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "Infinity"
	}
	return fmt.Sprintf("%.2f", pf)
}
