// Package models provides the forecasting model implementations scored by
// the backtesting pipeline.
package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

var (
	// ErrEmptySeries is returned by Fit when the training series has no
	// observations.
	ErrEmptySeries = errors.New("models: training series is empty")

	// ErrNotFitted is returned by Predict when the model has not been
	// fitted yet.
	ErrNotFitted = errors.New("models: model is not fitted")
)

// Model is the contract shared by every forecasting variant.
//
// Fit derives all internal state from the training series; calling Fit
// again fully resets that state, it never accumulates. Predict is valid
// only after a successful Fit, is side-effect-free, and may be called
// repeatedly with different step counts. The forecast is always indexed by
// consecutive daily timestamps starting one day after the last training
// observation.
type Model interface {
	// Name returns the stable, unique identifier of the variant. It is
	// used as the result key throughout the pipeline.
	Name() string

	// Family returns the model family tag.
	Family() Family

	// Fit trains the model. Returns ErrEmptySeries for an empty series.
	Fit(ctx context.Context, s *timeseries.Series) error

	// Predict forecasts steps values. Returns ErrNotFitted before Fit.
	Predict(steps int) (*timeseries.Series, error)
}

// Family identifies a forecasting model family. The set is closed: the
// factory in pkg/gridsearch switches exhaustively over these tags, so
// adding a family is a compile-time visible change rather than a new
// string-keyed branch.
type Family int

const (
	FamilyNaive Family = iota
	FamilySeasonalNaive
	FamilyMovingAverage
	FamilyLinearRegression
	FamilyExponentialSmoothing
)

// String returns the family identifier used in results, logs and the API.
func (f Family) String() string {
	switch f {
	case FamilyNaive:
		return "naive"
	case FamilySeasonalNaive:
		return "seasonal_naive"
	case FamilyMovingAverage:
		return "moving_average"
	case FamilyLinearRegression:
		return "linear_regression"
	case FamilyExponentialSmoothing:
		return "exponential_smoothing"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily converts a family identifier back to its tag.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "naive":
		return FamilyNaive, nil
	case "seasonal_naive":
		return FamilySeasonalNaive, nil
	case "moving_average":
		return FamilyMovingAverage, nil
	case "linear_regression":
		return FamilyLinearRegression, nil
	case "exponential_smoothing":
		return FamilyExponentialSmoothing, nil
	default:
		return 0, fmt.Errorf("models: unknown model family %q", s)
	}
}

// DefaultRoster returns fresh instances of the default model ensemble in
// the fixed order used for backtesting. The order matters: selection
// tie-breaks resolve to the first model in this sequence.
func DefaultRoster() []Model {
	return []Model{
		NewLinearRegressionModel(),
		NewMovingAverageModel(7),
		NewExponentialSmoothingModel(TrendAdditive, SeasonalNone, 0),
		NewNaiveModel(),
		NewSeasonalNaiveModel(7),
	}
}

// checkSteps validates the Predict step count shared by all variants.
func checkSteps(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("models: steps must be positive, got %d", steps)
	}
	return nil
}

// olsLine fits y = intercept + slope*x over x = 0..len(values)-1 using
// ordinary least squares. Returns (0, mean) degenerate fits for fewer than
// two points.
func olsLine(values []float64) (intercept, slope float64) {
	n := float64(len(values))
	if len(values) == 0 {
		return 0, 0
	}
	if len(values) == 1 {
		return values[0], 0
	}

	sumX := 0.0
	sumY := 0.0
	sumXY := 0.0
	sumX2 := 0.0
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}

// olsSlope returns only the slope of the least-squares line over the values.
func olsSlope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, slope := olsLine(values)
	return slope
}
