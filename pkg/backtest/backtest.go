package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/runrate-dev/runrate/pkg/models"
	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// Result holds the backtest outcome for a single model.
//
// Invariant: when Err is non-empty, MAE and MAPE are +Inf, so a failed
// model can never beat a successful one during selection.
type Result struct {
	Model       string    `json:"model"`
	MAE         float64   `json:"mae"`
	MAPE        float64   `json:"mape"`
	Predictions []float64 `json:"predictions"`
	Actuals     []float64 `json:"actuals,omitempty"`
	Err         string    `json:"error,omitempty"`
}

// Failed reports whether the model's fit or prediction failed.
func (r Result) Failed() bool {
	return r.Err != ""
}

// errorResult builds the sentinel result for a failed candidate.
func errorResult(model string, err error) Result {
	return Result{
		Model:       model,
		MAE:         math.Inf(1),
		MAPE:        math.Inf(1),
		Predictions: []float64{},
		Err:         err.Error(),
	}
}

// Backtester scores a roster of forecasting models out-of-sample.
type Backtester struct {
	roster []models.Model
	logger *slog.Logger
	limit  int
}

// New creates a Backtester for the given roster. The roster order is
// significant: selection tie-breaks resolve to the earliest entry.
func New(roster []models.Model, logger *slog.Logger) *Backtester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{
		roster: roster,
		logger: logger,
		limit:  runtime.GOMAXPROCS(0),
	}
}

// Roster returns the configured models in evaluation order.
func (b *Backtester) Roster() []models.Model {
	return b.roster
}

// Single backtests one model: split the series at floor(len*trainSize),
// fit on the training portion, forecast the test horizon and score it.
//
// The horizon silently shrinks to the test length when the test portion is
// shorter (logged as a warning). A horizon of zero or less returns the
// sentinel result immediately without fitting. Fit and predict failures
// are caught and converted into an error-tagged result; they never
// propagate to the caller.
func (b *Backtester) Single(ctx context.Context, model models.Model, s *timeseries.Series, trainSize float64, horizon int) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("backtest panicked", "model", model.Name(), "panic", p)
			res = errorResult(model.Name(), fmt.Errorf("backtest panicked: %v", p))
		}
	}()

	splitIdx := int(float64(s.Len()) * trainSize)
	train, test := s.SplitAt(splitIdx)

	if test.Len() < horizon {
		b.logger.Warn("test data shorter than forecast horizon, shrinking horizon",
			"model", model.Name(),
			"test_len", test.Len(),
			"horizon", horizon,
		)
		horizon = test.Len()
	}
	if horizon <= 0 {
		return Result{
			Model:       model.Name(),
			MAE:         math.Inf(1),
			MAPE:        math.Inf(1),
			Predictions: []float64{},
		}
	}

	if err := model.Fit(ctx, train); err != nil {
		b.logger.Error("backtest fit failed", "model", model.Name(), "error", err)
		return errorResult(model.Name(), err)
	}

	forecast, err := model.Predict(horizon)
	if err != nil {
		b.logger.Error("backtest predict failed", "model", model.Name(), "error", err)
		return errorResult(model.Name(), err)
	}

	actual := test.Values[:horizon]
	metrics := CalculateMetrics(actual, forecast.Values)

	return Result{
		Model:       model.Name(),
		MAE:         metrics.MAE,
		MAPE:        metrics.MAPE,
		Predictions: forecast.Values,
		Actuals:     actual,
	}
}

// All backtests every model in the roster and returns the results in
// roster order. A failure for one model never aborts the others.
//
// Evaluations run on a bounded worker pool; results are collected by
// roster index so that tie-break determinism does not depend on which
// evaluation finishes first.
func (b *Backtester) All(ctx context.Context, s *timeseries.Series, trainSize float64, horizon int) []Result {
	results := make([]Result, len(b.roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, model := range b.roster {
		g.Go(func() error {
			b.logger.Info("backtesting model", "model", model.Name())
			results[i] = b.Single(gctx, model, s, trainSize, horizon)
			return nil
		})
	}
	// Single never returns an error; the group exists for bounding and
	// context plumbing only.
	_ = g.Wait()

	return results
}

// SelectBest returns the result with the strictly lowest MAE among the
// entries that did not fail. Ties keep the first encountered, so a fixed
// roster order makes selection deterministic. When every entry failed, the
// first entry is returned so callers always receive a selection. The
// boolean is false only for an empty result set.
func SelectBest(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}

	best := -1
	bestMAE := math.Inf(1)
	for i, r := range results {
		if r.Failed() {
			continue
		}
		if r.MAE < bestMAE {
			bestMAE = r.MAE
			best = i
		}
	}
	if best < 0 {
		return results[0], true
	}
	return results[best], true
}
