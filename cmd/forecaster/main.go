// Command forecaster implements the runrate forecasting service.
//
// The forecaster serves an HTTP API for on-demand forecasting and,
// optionally, runs a refresh loop that:
//  1. Pulls historical data from a configured source (CSV file or JSON API)
//  2. Cleans the series (sort, dedupe, fill gaps)
//  3. Backtests the model roster (or grid searches hyperparameters)
//  4. Refits the most accurate model on the full history
//  5. Stores the forecast snapshot for retrieval
//
// The HTTP API (port 8080, configurable) provides:
//   - POST /v1/forecast - Forecast posted data with the default roster
//   - POST /v1/forecast/search - Forecast posted data with tuned models
//   - POST /v1/forecast/csv - Forecast a posted CSV body
//   - POST /v1/report - Backtest posted data and return a CSV report
//   - GET /v1/forecast/latest?series=<name> - Retrieve latest snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	forecaster \
//	  -series=daily-revenue \
//	  -source=csv \
//	  -steps=30 \
//	  -interval=1h \
//	  -storage=redis -redis-addr=localhost:6379
//
// Environment variables:
//
//	LISTEN      - HTTP listen address (default: :8080)
//	SERIES      - Series name for stored snapshots (default: default)
//	SOURCE      - Data source kind: csv or http (empty disables the loop)
//	SOURCE_*    - Source configuration, e.g. SOURCE_PATH, SOURCE_URL
//	TRAIN_SIZE  - Backtest training fraction (default: 0.8)
//	STEPS       - Forecast horizon in days (default: 30)
//	PERIOD      - Seasonal period in days (default: 7)
//	TUNE        - Grid search hyperparameters: true or false (default: false)
//	INTERVAL    - Refresh loop interval (default: 1h)
//	STORAGE     - Storage backend: memory or redis (default: memory)
//	REDIS_ADDR  - Redis server address (default: localhost:6379)
//	LOG_LEVEL   - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT  - Logging format: text, json (default: text)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runrate-dev/runrate/cmd/forecaster/config"
	"github.com/runrate-dev/runrate/cmd/forecaster/logger"
	"github.com/runrate-dev/runrate/cmd/forecaster/metrics"
	"github.com/runrate-dev/runrate/cmd/forecaster/router"
	"github.com/runrate-dev/runrate/pkg/forecast"
	"github.com/runrate-dev/runrate/pkg/httpx"
	"github.com/runrate-dev/runrate/pkg/ingest"
	"github.com/runrate-dev/runrate/pkg/storage"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	slog.SetDefault(log)

	log.Info("starting runrate forecaster",
		"version", version,
		"series", cfg.Series,
		"storage", cfg.Storage,
	)

	store, err := newStore(cfg, log)
	if err != nil {
		log.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	m := metrics.New(cfg.Series)
	pipeline := forecast.New(log)

	opts := forecast.Options{
		TrainSize: cfg.TrainSize,
		Steps:     cfg.Steps,
		Period:    cfg.Period,
		Tune:      cfg.Tune,
	}

	mux := router.SetupRoutes(pipeline, store, m, log)
	httpServer := httpx.NewServer(cfg.Listen, httpx.LoggingMiddleware(log, mux), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Source != "" {
		source, err := ingest.New(cfg.Source, cfg.SourceConfig)
		if err != nil {
			log.Error("failed to create source", "error", err)
			os.Exit(1)
		}

		f := NewForecaster(cfg.Series, source, pipeline, store, opts, log, m)
		go func() {
			if err := f.Run(ctx, cfg.Interval); err != nil && err != context.Canceled {
				log.Error("refresh loop failed", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

// newStore creates the configured snapshot store.
func newStore(cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "redis":
		log.Info("using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	default:
		log.Info("using memory storage")
		return storage.NewMemoryStore(), nil
	}
}
