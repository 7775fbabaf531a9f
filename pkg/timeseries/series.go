// Package timeseries provides the daily time-series data structure consumed
// by the forecasting models and the backtesting pipeline, along with
// cleaning and CSV helpers.
package timeseries

import (
	"errors"
	"math"
	"time"
)

// Day is the fixed forecast frequency. Forecast indexes always advance in
// whole days regardless of the cadence of the input data.
const Day = 24 * time.Hour

// Series represents an ordered univariate time series. Dates are strictly
// increasing and unique after cleaning; Dates and Values always have the
// same length.
//
// A Series handed to a model's Fit is treated as immutable: models copy
// whatever state they derive from it and never mutate the slices.
type Series struct {
	Name   string
	Dates  []time.Time
	Values []float64
}

// New creates a series from parallel date and value slices.
func New(dates []time.Time, values []float64) (*Series, error) {
	if len(dates) != len(values) {
		return nil, errors.New("timeseries: dates and values must have the same length")
	}
	return &Series{Dates: dates, Values: values}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

// Empty reports whether the series has no observations.
func (s *Series) Empty() bool {
	return len(s.Values) == 0
}

// Last returns the final observed value. Panics on an empty series.
func (s *Series) Last() float64 {
	return s.Values[len(s.Values)-1]
}

// LastDate returns the timestamp of the final observation. Panics on an
// empty series.
func (s *Series) LastDate() time.Time {
	return s.Dates[len(s.Dates)-1]
}

// Tail returns a view of the last n observations, or the whole series when
// n exceeds its length.
func (s *Series) Tail(n int) *Series {
	if n >= s.Len() {
		return s
	}
	start := s.Len() - n
	return &Series{Name: s.Name, Dates: s.Dates[start:], Values: s.Values[start:]}
}

// SplitAt splits the series into two views at index i, preserving time
// order. The first covers [0, i), the second [i, len). i is clamped to the
// valid range.
func (s *Series) SplitAt(i int) (*Series, *Series) {
	if i < 0 {
		i = 0
	}
	if i > s.Len() {
		i = s.Len()
	}
	head := &Series{Name: s.Name, Dates: s.Dates[:i], Values: s.Values[:i]}
	tail := &Series{Name: s.Name, Dates: s.Dates[i:], Values: s.Values[i:]}
	return head, tail
}

// Mean calculates the arithmetic mean of the values.
func (s *Series) Mean() float64 {
	if s.Empty() {
		return 0
	}
	sum := 0.0
	for _, v := range s.Values {
		sum += v
	}
	return sum / float64(len(s.Values))
}

// Std calculates the sample standard deviation of the values.
func (s *Series) Std() float64 {
	if s.Len() < 2 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, v := range s.Values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(s.Len()-1))
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	out := &Series{
		Name:   s.Name,
		Dates:  make([]time.Time, len(s.Dates)),
		Values: make([]float64, len(s.Values)),
	}
	copy(out.Dates, s.Dates)
	copy(out.Values, s.Values)
	return out
}

// FutureIndex returns steps consecutive daily timestamps starting one day
// after the last observation. The 1-day frequency is fixed and never
// inferred from the input cadence.
func (s *Series) FutureIndex(steps int) []time.Time {
	return FutureIndex(s.LastDate(), steps)
}

// FutureIndex returns steps consecutive daily timestamps starting one day
// after last.
func FutureIndex(last time.Time, steps int) []time.Time {
	if steps <= 0 {
		return nil
	}
	dates := make([]time.Time, steps)
	for i := range dates {
		dates[i] = last.Add(time.Duration(i+1) * Day)
	}
	return dates
}
