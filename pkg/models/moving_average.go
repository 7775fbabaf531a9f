package models

import (
	"context"
	"time"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// trendWindow caps how much recent history feeds the trend estimate.
const trendWindow = 30

// MovingAverageModel forecasts the mean of the last window training values,
// extrapolated along a linear trend fitted over recent history.
//
// The baseline is the mean of the trailing window; the slope comes from an
// ordinary least-squares fit over the last min(30, n) observations. Forecast
// step i (0-indexed) is baseline + (i+1)*slope. With fewer than two points
// in the trend window the slope is 0 and the forecast is flat.
type MovingAverageModel struct {
	window     int
	fitted     bool
	baseline   float64
	trendSlope float64
	lastDate   time.Time
}

// NewMovingAverageModel creates a moving-average model with the given
// window size. Windows below 1 fall back to the default of 7.
func NewMovingAverageModel(window int) *MovingAverageModel {
	if window < 1 {
		window = 7
	}
	return &MovingAverageModel{window: window}
}

// Name returns the model identifier.
func (m *MovingAverageModel) Name() string { return FamilyMovingAverage.String() }

// Family returns the model family tag.
func (m *MovingAverageModel) Family() Family { return FamilyMovingAverage }

// Window returns the configured averaging window.
func (m *MovingAverageModel) Window() int { return m.window }

// Fit computes the trailing-window mean and the recent trend slope.
func (m *MovingAverageModel) Fit(ctx context.Context, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return ErrEmptySeries
	}

	m.baseline = s.Tail(m.window).Mean()
	m.trendSlope = olsSlope(s.Tail(trendWindow).Values)
	m.lastDate = s.LastDate()
	m.fitted = true
	return nil
}

// Predict extrapolates the baseline along the fitted trend.
func (m *MovingAverageModel) Predict(steps int) (*timeseries.Series, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkSteps(steps); err != nil {
		return nil, err
	}

	values := make([]float64, steps)
	for i := range values {
		values[i] = m.baseline + float64(i+1)*m.trendSlope
	}
	return &timeseries.Series{
		Dates:  timeseries.FutureIndex(m.lastDate, steps),
		Values: values,
	}, nil
}
