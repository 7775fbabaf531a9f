package models

import (
	"context"
	"math"
	"testing"
)

func TestExponentialSmoothingFlatSeries(t *testing.T) {
	s := makeSeries(50, 50, 50, 50, 50, 50, 50, 50)
	m := NewExponentialSmoothingModel(TrendNone, SeasonalNone, 0)
	if err := m.Fit(context.Background(), s); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	forecast, err := m.Predict(5)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i, v := range forecast.Values {
		if math.Abs(v-50) > 1e-9 {
			t.Errorf("Values[%d] = %v, want 50", i, v)
		}
	}
}

func TestExponentialSmoothingAdditiveTrend(t *testing.T) {
	// A clean linear ramp: the trended forecast must keep climbing.
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + 5*float64(i)
	}
	m := NewExponentialSmoothingModel(TrendAdditive, SeasonalNone, 0)
	if err := m.Fit(context.Background(), makeSeries(values...)); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	forecast, err := m.Predict(5)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	last := values[len(values)-1]
	for i, v := range forecast.Values {
		if v <= last {
			t.Errorf("Values[%d] = %v, want above %v", i, v, last)
		}
		last = v
	}
}

func TestExponentialSmoothingSeasonalAdditive(t *testing.T) {
	// Repeating weekly pattern over four seasons.
	pattern := []float64{10, 20, 30, 40, 30, 20, 10}
	var values []float64
	for i := 0; i < 4; i++ {
		values = append(values, pattern...)
	}
	m := NewExponentialSmoothingModel(TrendNone, SeasonalAdditive, 7)
	if err := m.Fit(context.Background(), makeSeries(values...)); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	forecast, err := m.Predict(7)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	// The seasonal forecast must track the pattern's shape: its peak at
	// the same offset as the training pattern.
	peakIdx := 0
	for i, v := range forecast.Values {
		if v > forecast.Values[peakIdx] {
			peakIdx = i
		}
	}
	if peakIdx != 3 {
		t.Errorf("forecast peak at step %d, want 3", peakIdx)
	}
}

func TestExponentialSmoothingFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		trend    TrendType
		seasonal SeasonalType
		period   int
		values   []float64
	}{
		{
			name:     "seasonal period below 2",
			seasonal: SeasonalAdditive,
			period:   1,
			values:   []float64{1, 2, 3, 4, 5},
		},
		{
			name:     "series shorter than two seasons",
			seasonal: SeasonalAdditive,
			period:   7,
			values:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:   "multiplicative trend with non-positive values",
			trend:  TrendMultiplicative,
			values: []float64{5, 0, 5, 6, 7},
		},
		{
			name:   "trend on single observation",
			trend:  TrendAdditive,
			values: []float64{42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewExponentialSmoothingModel(tt.trend, tt.seasonal, tt.period)
			if err := m.Fit(context.Background(), makeSeries(tt.values...)); err != nil {
				t.Fatalf("Fit() error = %v, fallback should absorb the bad configuration", err)
			}

			forecast, err := m.Predict(3)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			for i, v := range forecast.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("Values[%d] = %v, want finite", i, v)
				}
			}
		})
	}
}

func TestExponentialSmoothingCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewExponentialSmoothingModel(TrendAdditive, SeasonalNone, 0)
	err := m.Fit(ctx, makeSeries(1, 2, 3, 4, 5))
	if err == nil {
		t.Fatal("Fit with canceled context should error")
	}
}

func TestExponentialSmoothingConfig(t *testing.T) {
	m := NewExponentialSmoothingModel(TrendAdditive, SeasonalMultiplicative, 12)
	trend, seasonal, period := m.Config()
	if trend != TrendAdditive || seasonal != SeasonalMultiplicative || period != 12 {
		t.Errorf("Config() = (%v, %v, %d), want requested values back", trend, seasonal, period)
	}
}
