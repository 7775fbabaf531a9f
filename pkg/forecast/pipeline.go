// Package forecast orchestrates the end-to-end forecasting pipeline:
//
//	clean → backtest (or grid search) → select best → refit on full history → predict
//
// The pipeline is shared by the HTTP API, which runs it on request-supplied
// data, and the refresh loop, which runs it on data pulled from a
// configured source.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/runrate-dev/runrate/pkg/backtest"
	"github.com/runrate-dev/runrate/pkg/gridsearch"
	"github.com/runrate-dev/runrate/pkg/models"
	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// Options configures one pipeline run.
type Options struct {
	// TrainSize is the fraction of history used for backtest training.
	// Values outside (0, 1) fall back to 0.8.
	TrainSize float64

	// Steps is the forecast horizon in days. Values <= 0 fall back to 30.
	Steps int

	// Period is the seasonal period for the default roster's seasonal
	// naive model. Values <= 0 fall back to 7.
	Period int

	// Tune selects hyperparameter grid search instead of the default
	// roster.
	Tune bool
}

func (o Options) withDefaults() Options {
	if o.TrainSize <= 0 || o.TrainSize >= 1 {
		o.TrainSize = 0.8
	}
	if o.Steps <= 0 {
		o.Steps = 30
	}
	if o.Period <= 0 {
		o.Period = 7
	}
	return o
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	// Forecast is the predicted series, indexed by consecutive days after
	// the last observation.
	Forecast *timeseries.Series

	// Model names the selected variant; Params holds its tuned
	// hyperparameters when grid search produced it.
	Model  string
	Params gridsearch.Params

	// MAE and MAPE are the selected model's backtest scores.
	MAE  float64
	MAPE float64

	// Results holds the per-model backtest comparison (default roster
	// runs only).
	Results []backtest.Result

	// SearchResults holds the per-family grid search outcomes (tuned
	// runs only).
	SearchResults []gridsearch.SearchResult

	GeneratedAt time.Time

	// Stage durations, for the caller's instrumentation.
	BacktestDuration time.Duration
	PredictDuration  time.Duration
}

// Pipeline runs the forecasting pipeline over a raw series.
type Pipeline struct {
	logger *slog.Logger
}

// New creates a pipeline.
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger}
}

// Run executes the full pipeline on the raw series. Per-model failures are
// absorbed by selection; Run itself fails only when the cleaned series is
// unusable or the selected model cannot be refitted on the full history.
func (p *Pipeline) Run(ctx context.Context, raw *timeseries.Series, opts Options) (*Outcome, error) {
	opts = opts.withDefaults()

	cleaned, err := timeseries.Clean(raw, p.logger)
	if err != nil {
		return nil, fmt.Errorf("forecast: clean series: %w", err)
	}

	p.logger.Info("running forecast pipeline",
		"series", cleaned.Name,
		"observations", cleaned.Len(),
		"steps", opts.Steps,
		"tuned", opts.Tune,
	)

	if opts.Tune {
		return p.runTuned(ctx, cleaned, opts)
	}
	return p.runRoster(ctx, cleaned, opts)
}

// runRoster backtests the default roster and refits the winner.
func (p *Pipeline) runRoster(ctx context.Context, s *timeseries.Series, opts Options) (*Outcome, error) {
	roster := rosterFor(opts.Period)
	backtester := backtest.New(roster, p.logger)

	start := time.Now()
	results := backtester.All(ctx, s, opts.TrainSize, opts.Steps)
	backtestDuration := time.Since(start)

	best, ok := backtest.SelectBest(results)
	if !ok {
		return nil, fmt.Errorf("forecast: no models to select from")
	}
	if best.Failed() {
		return nil, fmt.Errorf("forecast: every model failed backtesting, first error: %s", best.Err)
	}

	var winner models.Model
	for _, m := range roster {
		if m.Name() == best.Model {
			winner = m
			break
		}
	}
	if winner == nil {
		return nil, fmt.Errorf("forecast: selected model %q not in roster", best.Model)
	}

	forecast, predictDuration, err := p.refit(ctx, winner, s, opts.Steps)
	if err != nil {
		return nil, err
	}

	p.logger.Info("forecast pipeline complete",
		"series", s.Name,
		"model", best.Model,
		"mae", best.MAE,
		"backtest_ms", backtestDuration.Milliseconds(),
		"predict_ms", predictDuration.Milliseconds(),
	)

	return &Outcome{
		Forecast:         forecast,
		Model:            best.Model,
		MAE:              best.MAE,
		MAPE:             best.MAPE,
		Results:          results,
		GeneratedAt:      time.Now().UTC(),
		BacktestDuration: backtestDuration,
		PredictDuration:  predictDuration,
	}, nil
}

// runTuned grid searches every family and refits the winning combination.
func (p *Pipeline) runTuned(ctx context.Context, s *timeseries.Series, opts Options) (*Outcome, error) {
	optimizer := gridsearch.New(p.logger)

	start := time.Now()
	searchResults := optimizer.OptimizeAll(ctx, s, opts.TrainSize, opts.Steps)
	searchDuration := time.Since(start)

	best, ok := gridsearch.SelectBest(searchResults)
	if !ok {
		return nil, fmt.Errorf("forecast: no families to select from")
	}
	if best.Evaluated == 0 {
		return nil, fmt.Errorf("forecast: every grid search combination failed")
	}

	winner, err := gridsearch.NewModel(best.Family, best.Params)
	if err != nil {
		return nil, fmt.Errorf("forecast: construct tuned model: %w", err)
	}

	// Rescore the tuned winner so the outcome carries MAPE alongside the
	// searched MAE. The refit below replaces the backtest fit entirely.
	scored := backtest.New(nil, p.logger).Single(ctx, winner, s, opts.TrainSize, opts.Steps)
	mape := scored.MAPE

	forecast, predictDuration, err := p.refit(ctx, winner, s, opts.Steps)
	if err != nil {
		return nil, err
	}

	p.logger.Info("tuned forecast pipeline complete",
		"series", s.Name,
		"family", best.Family.String(),
		"params", fmt.Sprint(best.Params),
		"mae", best.MAE,
		"search_ms", searchDuration.Milliseconds(),
		"predict_ms", predictDuration.Milliseconds(),
	)

	return &Outcome{
		Forecast:         forecast,
		Model:            winner.Name(),
		Params:           best.Params,
		MAE:              best.MAE,
		MAPE:             mape,
		SearchResults:    searchResults,
		GeneratedAt:      time.Now().UTC(),
		BacktestDuration: searchDuration,
		PredictDuration:  predictDuration,
	}, nil
}

// refit trains the winner on the full history and predicts the horizon.
func (p *Pipeline) refit(ctx context.Context, winner models.Model, s *timeseries.Series, steps int) (*timeseries.Series, time.Duration, error) {
	start := time.Now()

	if err := winner.Fit(ctx, s); err != nil {
		return nil, 0, fmt.Errorf("forecast: refit %s on full history: %w", winner.Name(), err)
	}
	forecast, err := winner.Predict(steps)
	if err != nil {
		return nil, 0, fmt.Errorf("forecast: predict with %s: %w", winner.Name(), err)
	}

	forecast.Name = s.Name
	return forecast, time.Since(start), nil
}

// rosterFor builds the default roster with the configured seasonal period.
func rosterFor(period int) []models.Model {
	if period == 7 {
		return models.DefaultRoster()
	}
	return []models.Model{
		models.NewLinearRegressionModel(),
		models.NewMovingAverageModel(7),
		models.NewExponentialSmoothingModel(models.TrendAdditive, models.SeasonalNone, 0),
		models.NewNaiveModel(),
		models.NewSeasonalNaiveModel(period),
	}
}
