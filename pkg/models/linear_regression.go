package models

import (
	"context"
	"time"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// LinearRegressionModel fits an ordinary least-squares line of value
// against the integer time index 0..n-1 over the whole training series and
// forecasts by extrapolating that line to future indexes.
type LinearRegressionModel struct {
	fitted    bool
	intercept float64
	slope     float64
	n         int
	lastDate  time.Time
}

// NewLinearRegressionModel creates a new linear-regression trend model.
func NewLinearRegressionModel() *LinearRegressionModel {
	return &LinearRegressionModel{}
}

// Name returns the model identifier.
func (m *LinearRegressionModel) Name() string { return FamilyLinearRegression.String() }

// Family returns the model family tag.
func (m *LinearRegressionModel) Family() Family { return FamilyLinearRegression }

// Fit runs the least-squares fit over the full series.
func (m *LinearRegressionModel) Fit(ctx context.Context, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return ErrEmptySeries
	}

	m.intercept, m.slope = olsLine(s.Values)
	m.n = s.Len()
	m.lastDate = s.LastDate()
	m.fitted = true
	return nil
}

// Predict extends the fitted line to indexes n..n+steps-1.
func (m *LinearRegressionModel) Predict(steps int) (*timeseries.Series, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkSteps(steps); err != nil {
		return nil, err
	}

	values := make([]float64, steps)
	for i := range values {
		values[i] = m.intercept + m.slope*float64(m.n+i)
	}
	return &timeseries.Series{
		Dates:  timeseries.FutureIndex(m.lastDate, steps),
		Values: values,
	}, nil
}
