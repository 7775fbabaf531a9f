// Package backtest scores forecasting models against held-out history and
// selects the best performer by mean absolute error.
package backtest

import "math"

// mapeEpsilon replaces zero actual values in the MAPE denominator. Near-zero
// actuals therefore inflate MAPE; that bias is part of the metric's contract
// and is reported as-is rather than corrected.
const mapeEpsilon = 1e-10

// Metrics holds the accuracy scores for one forecast.
type Metrics struct {
	MAE  float64
	MAPE float64
}

// Unscorable reports whether the metrics carry the sentinel infinite
// scores, meaning no aligned points were available.
func (m Metrics) Unscorable() bool {
	return math.IsInf(m.MAE, 1) && math.IsInf(m.MAPE, 1)
}

// infMetrics is the sentinel for forecasts that could not be scored. It
// compares worse than any attainable real score, so unscorable and failed
// candidates can never win selection.
func infMetrics() Metrics {
	return Metrics{MAE: math.Inf(1), MAPE: math.Inf(1)}
}

// CalculateMetrics computes MAE and MAPE between actual and predicted
// values aligned by index. Positions missing from either side (beyond the
// shorter length, or NaN in either sequence) are skipped. With zero aligned
// points both metrics are +Inf.
func CalculateMetrics(actual, predicted []float64) Metrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}

	count := 0
	sumAbs := 0.0
	sumPct := 0.0
	for i := 0; i < n; i++ {
		a, p := actual[i], predicted[i]
		if math.IsNaN(a) || math.IsNaN(p) {
			continue
		}

		diff := math.Abs(a - p)
		sumAbs += diff

		denom := math.Abs(a)
		if denom == 0 {
			denom = mapeEpsilon
		}
		sumPct += diff / denom
		count++
	}

	if count == 0 {
		return infMetrics()
	}
	return Metrics{
		MAE:  sumAbs / float64(count),
		MAPE: sumPct / float64(count),
	}
}
