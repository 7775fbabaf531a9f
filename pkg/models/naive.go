package models

import (
	"context"
	"time"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// NaiveModel forecasts a constant equal to the last observed training
// value. It is the simplest member of the roster and the benchmark every
// other variant has to beat.
type NaiveModel struct {
	fitted    bool
	lastValue float64
	lastDate  time.Time
}

// NewNaiveModel creates a new naive forecasting model.
func NewNaiveModel() *NaiveModel {
	return &NaiveModel{}
}

// Name returns the model identifier.
func (m *NaiveModel) Name() string { return FamilyNaive.String() }

// Family returns the model family tag.
func (m *NaiveModel) Family() Family { return FamilyNaive }

// Fit stores the last training observation.
func (m *NaiveModel) Fit(ctx context.Context, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return ErrEmptySeries
	}
	m.lastValue = s.Last()
	m.lastDate = s.LastDate()
	m.fitted = true
	return nil
}

// Predict returns steps copies of the last training value on a daily index.
func (m *NaiveModel) Predict(steps int) (*timeseries.Series, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkSteps(steps); err != nil {
		return nil, err
	}

	values := make([]float64, steps)
	for i := range values {
		values[i] = m.lastValue
	}
	return &timeseries.Series{
		Dates:  timeseries.FutureIndex(m.lastDate, steps),
		Values: values,
	}, nil
}
