package models

import (
	"context"
	"fmt"
	"time"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// SeasonalNaiveModel forecasts by cycling through the most recent full
// season of training values. For 0-indexed forecast step i with period p,
// the prediction is the training value at offset -p + (i mod p) from the
// end of the series.
//
// All future steps repeat only the last p observations; deeper history is
// never consulted. That keeps the model cheap and makes it a strong
// candidate for short, strongly periodic series.
type SeasonalNaiveModel struct {
	period   int
	fitted   bool
	season   []float64
	lastDate time.Time
}

// NewSeasonalNaiveModel creates a seasonal naive model with the given
// seasonal period. Periods below 1 fall back to the default of 7.
func NewSeasonalNaiveModel(period int) *SeasonalNaiveModel {
	if period < 1 {
		period = 7
	}
	return &SeasonalNaiveModel{period: period}
}

// Name returns the model identifier.
func (m *SeasonalNaiveModel) Name() string { return FamilySeasonalNaive.String() }

// Family returns the model family tag.
func (m *SeasonalNaiveModel) Family() Family { return FamilySeasonalNaive }

// Period returns the configured seasonal period.
func (m *SeasonalNaiveModel) Period() int { return m.period }

// Fit captures the most recent full season of training values. Fails when
// the series is shorter than the seasonal period.
func (m *SeasonalNaiveModel) Fit(ctx context.Context, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return ErrEmptySeries
	}
	if s.Len() < m.period {
		return fmt.Errorf("models: series length %d is shorter than seasonal period %d", s.Len(), m.period)
	}

	season := make([]float64, m.period)
	copy(season, s.Values[s.Len()-m.period:])
	m.season = season
	m.lastDate = s.LastDate()
	m.fitted = true
	return nil
}

// Predict cycles through the captured season for steps daily values.
func (m *SeasonalNaiveModel) Predict(steps int) (*timeseries.Series, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkSteps(steps); err != nil {
		return nil, err
	}

	values := make([]float64, steps)
	for i := range values {
		values[i] = m.season[i%m.period]
	}
	return &timeseries.Series{
		Dates:  timeseries.FutureIndex(m.lastDate, steps),
		Values: values,
	}, nil
}
