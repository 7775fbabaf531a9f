// Package main implements the refresh loop orchestration.
//
// This file contains the Forecaster type which drives the periodic
// pipeline:
//
//	fetch → clean → backtest → select best → refit → predict → store
//
// The Forecaster runs continuously via Run(), executing Tick() at regular
// intervals. Each tick pulls fresh history from the configured source,
// reruns the full forecasting pipeline and updates the stored snapshot
// that GET /v1/forecast/latest serves.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/runrate-dev/runrate/cmd/forecaster/metrics"
	"github.com/runrate-dev/runrate/pkg/forecast"
	"github.com/runrate-dev/runrate/pkg/ingest"
	"github.com/runrate-dev/runrate/pkg/storage"
)

// Forecaster drives the periodic refresh loop.
type Forecaster struct {
	series   string
	source   ingest.Source
	pipeline *forecast.Pipeline
	store    storage.Store
	opts     forecast.Options
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewForecaster creates a refresh loop runner.
func NewForecaster(
	series string,
	source ingest.Source,
	pipeline *forecast.Pipeline,
	store storage.Store,
	opts forecast.Options,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		series:   series,
		source:   source,
		pipeline: pipeline,
		store:    store,
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

// Run executes the refresh loop at regular intervals. Blocks until the
// context is canceled.
func (f *Forecaster) Run(ctx context.Context, interval time.Duration) error {
	f.logger.Info("starting refresh loop", "series", f.series, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := f.Tick(ctx); err != nil {
		f.logger.Error("initial refresh tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := f.Tick(ctx); err != nil {
				f.logger.Error("refresh tick failed", "error", err)
			}
		}
	}
}

// Tick performs one refresh cycle. Exported for testing purposes.
func (f *Forecaster) Tick(ctx context.Context) error {
	start := time.Now()
	f.logger.Debug("starting refresh tick", "series", f.series)

	fetchStart := time.Now()
	raw, err := f.source.Fetch(ctx)
	if err != nil {
		if f.metrics != nil {
			f.metrics.RecordError("source", "fetch_failed")
		}
		return fmt.Errorf("fetch: %w", err)
	}
	fetchDuration := time.Since(fetchStart)
	if f.metrics != nil {
		f.metrics.RecordFetch(fetchDuration.Seconds())
	}
	raw.Name = f.series

	outcome, err := f.pipeline.Run(ctx, raw, f.opts)
	if err != nil {
		if f.metrics != nil {
			f.metrics.RecordError("pipeline", "run_failed")
		}
		return fmt.Errorf("pipeline: %w", err)
	}

	snapshot := storage.Snapshot{
		Series:      f.series,
		Model:       outcome.Model,
		GeneratedAt: outcome.GeneratedAt,
		Steps:       outcome.Forecast.Len(),
		Dates:       outcome.Forecast.Dates,
		Values:      outcome.Forecast.Values,
		MAE:         storage.Score(outcome.MAE),
		MAPE:        storage.Score(outcome.MAPE),
		Params:      outcome.Params,
	}
	if err := f.store.Put(ctx, snapshot); err != nil {
		if f.metrics != nil {
			f.metrics.RecordError("store", "put_failed")
		}
		return fmt.Errorf("store: %w", err)
	}

	if f.metrics != nil {
		if f.opts.Tune {
			f.metrics.RecordGridSearch(outcome.BacktestDuration.Seconds())
		} else {
			f.metrics.RecordBacktest(outcome.BacktestDuration.Seconds())
		}
		f.metrics.RecordPredict(outcome.PredictDuration.Seconds())
		f.metrics.SetAccuracy(outcome.MAE, outcome.MAPE)
		f.metrics.SetSelectedModel(outcome.Model)
		f.metrics.SetForecastAge(0)
	}

	f.logger.Info("refresh tick complete",
		"series", f.series,
		"source", f.source.Name(),
		"model", outcome.Model,
		"mae", outcome.MAE,
		"observations", raw.Len(),
		"fetch_ms", fetchDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
