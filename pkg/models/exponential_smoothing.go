package models

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// TrendType selects the trend component of an exponential smoothing model.
type TrendType string

// SeasonalType selects the seasonal component of an exponential smoothing
// model.
type SeasonalType string

const (
	TrendNone           TrendType = ""
	TrendAdditive       TrendType = "add"
	TrendMultiplicative TrendType = "mul"

	SeasonalNone           SeasonalType = ""
	SeasonalAdditive       SeasonalType = "add"
	SeasonalMultiplicative SeasonalType = "mul"
)

// ExponentialSmoothingModel implements Holt / Holt-Winters exponential
// smoothing with configurable trend and seasonal components.
//
// Smoothing coefficients (alpha, beta, gamma) are chosen during Fit by a
// coarse grid search minimizing the one-step-ahead squared error over the
// training series. The optimizer honors the context deadline, so callers
// can put a wall-clock budget on a fit.
//
// When the requested configuration cannot be fitted (series too short for
// the seasonal period, non-positive values with multiplicative components,
// or a numerically degenerate fit), Fit downgrades to simple exponential
// smoothing with no trend or seasonal component instead of failing. The
// downgrade is unconditional and logged as a warning.
type ExponentialSmoothingModel struct {
	trend    TrendType
	seasonal SeasonalType
	period   int

	fitted bool

	// effective configuration after any fallback
	effTrend    TrendType
	effSeasonal SeasonalType
	effPeriod   int

	alpha, beta, gamma float64
	level, slope       float64
	seasonals          []float64 // state per time index mod period

	n        int
	lastDate time.Time
}

// NewExponentialSmoothingModel creates an exponential smoothing model with
// the requested trend and seasonal configuration. A seasonal component
// requires period >= 2; otherwise the seasonal request is dropped at fit
// time via the fallback path.
func NewExponentialSmoothingModel(trend TrendType, seasonal SeasonalType, period int) *ExponentialSmoothingModel {
	return &ExponentialSmoothingModel{
		trend:    trend,
		seasonal: seasonal,
		period:   period,
	}
}

// Name returns the model identifier.
func (m *ExponentialSmoothingModel) Name() string { return FamilyExponentialSmoothing.String() }

// Family returns the model family tag.
func (m *ExponentialSmoothingModel) Family() Family { return FamilyExponentialSmoothing }

// Config returns the requested trend, seasonal and period settings.
func (m *ExponentialSmoothingModel) Config() (TrendType, SeasonalType, int) {
	return m.trend, m.seasonal, m.period
}

// Fit optimizes the smoothing coefficients and runs the smoothing
// recursion to its final state. All previously derived state is discarded.
func (m *ExponentialSmoothingModel) Fit(ctx context.Context, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return ErrEmptySeries
	}

	// Reset before refit.
	m.fitted = false
	m.seasonals = nil

	trend, seasonal, period, reason := m.effectiveConfig(s)
	if reason != "" {
		slog.Warn("exponential smoothing falling back to simple smoothing",
			"reason", reason,
			"requested_trend", string(m.trend),
			"requested_seasonal", string(m.seasonal),
			"requested_period", m.period,
		)
	}

	st, err := m.optimize(ctx, s.Values, trend, seasonal, period)
	if err != nil {
		return err
	}
	if !st.valid() && (trend != TrendNone || seasonal != SeasonalNone) {
		// Degenerate fit under the requested configuration; retry plain.
		slog.Warn("exponential smoothing fit degenerate, retrying without trend and seasonal components")
		trend, seasonal, period = TrendNone, SeasonalNone, 0
		st, err = m.optimize(ctx, s.Values, trend, seasonal, period)
		if err != nil {
			return err
		}
	}
	if !st.valid() {
		return fmt.Errorf("models: exponential smoothing produced a non-finite fit")
	}

	m.effTrend = trend
	m.effSeasonal = seasonal
	m.effPeriod = period
	m.alpha, m.beta, m.gamma = st.alpha, st.beta, st.gamma
	m.level, m.slope = st.level, st.slope
	m.seasonals = st.seasonals
	m.n = s.Len()
	m.lastDate = s.LastDate()
	m.fitted = true
	return nil
}

// Predict extrapolates the smoothed level, trend and seasonal states.
func (m *ExponentialSmoothingModel) Predict(steps int) (*timeseries.Series, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkSteps(steps); err != nil {
		return nil, err
	}

	values := make([]float64, steps)
	for i := range values {
		h := float64(i + 1)

		base := m.level
		switch m.effTrend {
		case TrendAdditive:
			base = m.level + h*m.slope
		case TrendMultiplicative:
			base = m.level * math.Pow(m.slope, h)
		}

		switch m.effSeasonal {
		case SeasonalAdditive:
			base += m.seasonals[(m.n+i)%m.effPeriod]
		case SeasonalMultiplicative:
			base *= m.seasonals[(m.n+i)%m.effPeriod]
		}

		values[i] = base
	}

	return &timeseries.Series{
		Dates:  timeseries.FutureIndex(m.lastDate, steps),
		Values: values,
	}, nil
}

// effectiveConfig checks whether the requested configuration is fittable
// on the given series. It returns the configuration to fit plus a non-empty
// reason when a fallback to simple smoothing was forced.
func (m *ExponentialSmoothingModel) effectiveConfig(s *timeseries.Series) (TrendType, SeasonalType, int, string) {
	trend, seasonal, period := m.trend, m.seasonal, m.period
	n := s.Len()

	if seasonal != SeasonalNone {
		switch {
		case period < 2:
			return TrendNone, SeasonalNone, 0, fmt.Sprintf("seasonal period %d is below 2", period)
		case n < 2*period:
			return TrendNone, SeasonalNone, 0,
				fmt.Sprintf("series length %d is below two full seasons of period %d", n, period)
		}
	}
	if trend != TrendNone && n < 2 {
		return TrendNone, SeasonalNone, 0, fmt.Sprintf("series length %d is too short for a trend component", n)
	}

	if trend == TrendMultiplicative || seasonal == SeasonalMultiplicative {
		for _, v := range s.Values {
			if v <= 0 {
				return TrendNone, SeasonalNone, 0, "multiplicative components require strictly positive values"
			}
		}
	}

	if seasonal == SeasonalNone {
		period = 0
	}
	return trend, seasonal, period, ""
}

// smoothingState is the outcome of one smoothing run.
type smoothingState struct {
	alpha, beta, gamma float64
	level, slope       float64
	seasonals          []float64
	sse                float64
}

func (st smoothingState) valid() bool {
	if math.IsNaN(st.level) || math.IsInf(st.level, 0) ||
		math.IsNaN(st.slope) || math.IsInf(st.slope, 0) ||
		math.IsNaN(st.sse) || math.IsInf(st.sse, 0) {
		return false
	}
	for _, v := range st.seasonals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Coefficient candidates for the coarse grid optimizer.
var (
	alphaGrid = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	betaGrid  = []float64{0.01, 0.05, 0.1, 0.2, 0.3}
	gammaGrid = []float64{0.05, 0.1, 0.2, 0.3}
)

// optimize sweeps the coefficient grid and returns the state with the
// lowest in-sample squared error. The sweep stops early when the context
// is done; whatever best state was found so far is kept. Returns the
// context error when not even one candidate could be evaluated.
func (m *ExponentialSmoothingModel) optimize(ctx context.Context, values []float64, trend TrendType, seasonal SeasonalType, period int) (smoothingState, error) {
	betas := []float64{0}
	if trend != TrendNone {
		betas = betaGrid
	}
	gammas := []float64{0}
	if seasonal != SeasonalNone {
		gammas = gammaGrid
	}

	best := smoothingState{sse: math.Inf(1)}
	evaluated := 0

sweep:
	for _, alpha := range alphaGrid {
		if ctx != nil && ctx.Err() != nil {
			break sweep
		}
		for _, beta := range betas {
			for _, gamma := range gammas {
				st := smoothingRun(values, trend, seasonal, period, alpha, beta, gamma)
				evaluated++
				if st.valid() && st.sse < best.sse {
					best = st
				}
			}
		}
	}

	if evaluated == 0 {
		if ctx != nil && ctx.Err() != nil {
			return smoothingState{}, fmt.Errorf("models: exponential smoothing fit canceled: %w", ctx.Err())
		}
		return smoothingState{}, fmt.Errorf("models: exponential smoothing evaluated no candidates")
	}
	if math.IsInf(best.sse, 1) && evaluated > 0 {
		// Every candidate diverged; surface an invalid state so Fit can
		// retry on the fallback path.
		return smoothingState{level: math.NaN()}, nil
	}
	return best, nil
}

// smoothingRun executes one pass of the Holt-Winters recursion with fixed
// coefficients and returns the final states plus the accumulated
// one-step-ahead squared error.
func smoothingRun(values []float64, trend TrendType, seasonal SeasonalType, period int, alpha, beta, gamma float64) smoothingState {
	st := smoothingState{alpha: alpha, beta: beta, gamma: gamma}
	n := len(values)

	if seasonal == SeasonalNone {
		st.level = values[0]
		switch trend {
		case TrendAdditive:
			st.slope = values[1] - values[0]
		case TrendMultiplicative:
			st.slope = 1
			if values[0] != 0 {
				st.slope = values[1] / values[0]
			}
		}

		for t := 1; t < n; t++ {
			prev := combine(st.level, st.slope, trend)
			diff := values[t] - prev
			st.sse += diff * diff

			newLevel := alpha*values[t] + (1-alpha)*prev
			st.slope = updateSlope(st.level, newLevel, st.slope, beta, trend)
			st.level = newLevel
		}
		return st
	}

	// Seasonal initialization over the first full season.
	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	st.level = sum / float64(period)
	switch trend {
	case TrendAdditive:
		st.slope = (values[period] - values[0]) / float64(period)
	case TrendMultiplicative:
		st.slope = 1
	}

	st.seasonals = make([]float64, period)
	for j := 0; j < period; j++ {
		if seasonal == SeasonalAdditive {
			st.seasonals[j] = values[j] - st.level
		} else {
			st.seasonals[j] = 1
			if st.level != 0 {
				st.seasonals[j] = values[j] / st.level
			}
		}
	}

	for t := period; t < n; t++ {
		idx := t % period
		base := combine(st.level, st.slope, trend)

		var prev, detrended float64
		if seasonal == SeasonalAdditive {
			prev = base + st.seasonals[idx]
			detrended = values[t] - st.seasonals[idx]
		} else {
			prev = base * st.seasonals[idx]
			sv := st.seasonals[idx]
			if sv == 0 {
				sv = 1
			}
			detrended = values[t] / sv
		}
		diff := values[t] - prev
		st.sse += diff * diff

		newLevel := alpha*detrended + (1-alpha)*base
		st.slope = updateSlope(st.level, newLevel, st.slope, beta, trend)

		if seasonal == SeasonalAdditive {
			st.seasonals[idx] = gamma*(values[t]-newLevel) + (1-gamma)*st.seasonals[idx]
		} else if newLevel != 0 {
			st.seasonals[idx] = gamma*(values[t]/newLevel) + (1-gamma)*st.seasonals[idx]
		}
		st.level = newLevel
	}
	return st
}

// combine applies the trend component to the current level for a one-step
// projection.
func combine(level, slope float64, trend TrendType) float64 {
	switch trend {
	case TrendAdditive:
		return level + slope
	case TrendMultiplicative:
		return level * slope
	default:
		return level
	}
}

// updateSlope advances the trend state after a level update.
func updateSlope(oldLevel, newLevel, slope, beta float64, trend TrendType) float64 {
	switch trend {
	case TrendAdditive:
		return beta*(newLevel-oldLevel) + (1-beta)*slope
	case TrendMultiplicative:
		if oldLevel == 0 {
			return slope
		}
		return beta*(newLevel/oldLevel) + (1-beta)*slope
	default:
		return slope
	}
}
