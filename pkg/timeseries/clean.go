package timeseries

import (
	"errors"
	"log/slog"
	"math"
	"sort"
)

// Clean validates and normalizes a raw series so it satisfies the contract
// the forecasting pipeline expects: chronologically sorted, unique
// timestamps, no missing values.
//
// Steps, in order:
//  1. Sort by date (stable, so later duplicates win).
//  2. Drop duplicate timestamps, keeping the last occurrence.
//  3. Forward-fill NaN values, then back-fill any leading NaNs.
//
// Returns an error when no valid observations remain. The input series is
// not modified.
func Clean(s *Series, logger *slog.Logger) (*Series, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil || s.Empty() {
		return nil, errors.New("timeseries: no data to clean")
	}

	order := make([]int, s.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Dates[order[a]].Before(s.Dates[order[b]])
	})

	out := &Series{Name: s.Name}
	for _, idx := range order {
		n := len(out.Dates)
		if n > 0 && out.Dates[n-1].Equal(s.Dates[idx]) {
			// Duplicate timestamp: the later row in input order wins.
			out.Values[n-1] = s.Values[idx]
			continue
		}
		out.Dates = append(out.Dates, s.Dates[idx])
		out.Values = append(out.Values, s.Values[idx])
	}

	missing := 0
	for _, v := range out.Values {
		if math.IsNaN(v) {
			missing++
		}
	}
	if missing == len(out.Values) {
		return nil, errors.New("timeseries: no valid data remaining after cleaning")
	}
	if missing > 0 {
		logger.Warn("found missing values in series, filling",
			"series", s.Name,
			"missing", missing,
			"total", len(out.Values),
		)
		forwardFill(out.Values)
		backFill(out.Values)
	}

	return out, nil
}

// forwardFill replaces each NaN with the most recent non-NaN value before it.
func forwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				values[i] = last
			}
			continue
		}
		last = v
	}
}

// backFill replaces each remaining NaN with the next non-NaN value after it.
func backFill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			if !math.IsNaN(next) {
				values[i] = next
			}
			continue
		}
		next = values[i]
	}
}

// FlagOutliers marks observations whose absolute z-score exceeds threshold.
// It is a diagnostic helper only; the pipeline never removes flagged points.
func FlagOutliers(s *Series, threshold float64) []bool {
	flags := make([]bool, s.Len())
	std := s.Std()
	if std == 0 {
		return flags
	}
	mean := s.Mean()
	for i, v := range s.Values {
		if math.Abs(v-mean)/std > threshold {
			flags[i] = true
		}
	}
	return flags
}
