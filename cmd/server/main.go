// Package main serves one replay session over REST and websocket:
// ticks come from a NinjaTrader export or a stored dataset, clients drive
// playback and orders, and every session event is pushed to /ws.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tick-replay-lab/internal/config"
	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/replay"
	"tick-replay-lab/internal/session"
	"tick-replay-lab/internal/transport/httpapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		os.Stderr.WriteString("read .env: " + err.Error() + "\n")
	}

	listenAddr := flag.String("listen-addr", config.Env("LISTEN_ADDR", ":8080"), "HTTP listen address")
	tickFile := flag.String("tick-file", os.Getenv("TICK_FILE"), "NinjaTrader tick export to replay")
	datasetID := flag.String("dataset-id", os.Getenv("DATASET_ID"), "Stored dataset to replay (when --tick-file is empty)")
	symbol := flag.String("symbol", config.Env("SYMBOL", "NQ"), "Instrument root symbol")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL/ClickHouse")
	timeframe := flag.String("timeframe", config.Env("TIMEFRAME", string(domain.DefaultTimeframe)), "Initial candle timeframe")
	speed := flag.Int("speed", config.EnvInt("SPEED", domain.DefaultSpeed), "Initial ticks per frame")
	frameInterval := flag.Duration("frame-interval", config.EnvDuration("FRAME_INTERVAL", replay.DefaultFrameInterval), "Playback frame interval")
	dev := flag.Bool("dev", false, "Human-readable debug logging")

	flag.Parse()

	logger, err := newLogger(*dev)
	if err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()
	if !*dev {
		gin.SetMode(gin.ReleaseMode)
	}

	tf, err := domain.ParseTimeframe(*timeframe)
	if err != nil {
		logger.Fatal("invalid --timeframe", zap.String("timeframe", *timeframe), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// a lone tick file needs no database
	memoryOnly := *useMemory || (*tickFile != "" && *postgresDSN == "" && *clickhouseDSN == "")
	stores, cleanup, err := config.OpenStores(ctx, config.StoreConfig{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     memoryOnly,
	})
	if err != nil {
		logger.Fatal("create stores", zap.Error(err))
	}
	defer cleanup()

	loaded, err := config.LoadTicks(ctx, config.TickSource{
		File:      *tickFile,
		DatasetID: *datasetID,
		Symbol:    *symbol,
	}, stores.Ticks)
	if err != nil {
		logger.Fatal("load ticks", zap.Error(err))
	}
	if res := loaded.Parse; res != nil {
		logger.Info("tick file parsed",
			zap.String("file", *tickFile),
			zap.String("format", string(res.Format)),
			zap.Int("ticks", len(res.Ticks)),
			zap.Int("malformed", res.Malformed),
		)
	}

	hub := httpapi.NewHub(logger.Named("ws"))
	sess, err := session.New(session.Options{
		Ticks:      loaded.Ticks,
		DatasetID:  loaded.DatasetID,
		Instrument: domain.InstrumentFor(*symbol),
		Timeframe:  tf,
		Speed:      *speed,
		Scheduler:  replay.NewTimerScheduler(*frameInterval),
		Listener:   hub,
		Logger:     logger.Named("session"),
	})
	if err != nil {
		logger.Fatal("create session", zap.Error(err))
	}
	defer sess.Close()

	srv := &http.Server{
		Addr: *listenAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Session:  sess,
			Hub:      hub,
			Datasets: stores.Datasets,
			Runs:     stores.Runs,
			Logger:   logger.Named("http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *listenAddr), zap.String("session_id", sess.ID()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}

	sess.Close()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
