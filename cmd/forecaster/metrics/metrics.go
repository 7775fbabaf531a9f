// Package metrics provides Prometheus metrics instrumentation for the
// forecaster.
//
// It exposes operational metrics about the forecasting pipeline, including
// the duration of each stage (fetch, backtest, grid search, predict), the
// accuracy and age of the latest forecast, and error tracking. All metrics
// are exposed via the /metrics HTTP endpoint for Prometheus scraping.
//
// Metrics exposed:
//   - runrate_source_fetch_seconds: Histogram of data source fetch duration
//   - runrate_backtest_seconds: Histogram of backtest duration
//   - runrate_grid_search_seconds: Histogram of hyperparameter search duration
//   - runrate_predict_seconds: Histogram of forecast prediction duration
//   - runrate_forecast_age_seconds: Gauge of current forecast age
//   - runrate_best_mae: Gauge of the selected model's backtest MAE
//   - runrate_best_mape: Gauge of the selected model's backtest MAPE
//   - runrate_selected_model: Gauge vector marking the winning model
//   - runrate_errors_total: Counter of errors by component and reason
//
// All metrics include the series label for multi-series deployments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecaster.
type Metrics struct {
	SourceFetchSeconds prometheus.Histogram
	BacktestSeconds    prometheus.Histogram
	GridSearchSeconds  prometheus.Histogram
	PredictSeconds     prometheus.Histogram
	ForecastAgeSeconds prometheus.Gauge
	BestMAE            prometheus.Gauge
	BestMAPE           prometheus.Gauge
	SelectedModel      *prometheus.GaugeVec
	ErrorsTotal        *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(series string) *Metrics {
	labels := prometheus.Labels{"series": series}

	return &Metrics{
		SourceFetchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "runrate_source_fetch_seconds",
			Help:        "Time spent fetching history from the data source",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		BacktestSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "runrate_backtest_seconds",
			Help:        "Time spent backtesting the model roster",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		GridSearchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "runrate_grid_search_seconds",
			Help:        "Time spent searching hyperparameter grids",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		PredictSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "runrate_predict_seconds",
			Help:        "Time spent fitting the winner and predicting",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		ForecastAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "runrate_forecast_age_seconds",
			Help:        "Age of the current forecast in seconds",
			ConstLabels: labels,
		}),

		BestMAE: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "runrate_best_mae",
			Help:        "Backtest MAE of the selected model",
			ConstLabels: labels,
		}),

		BestMAPE: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "runrate_best_mape",
			Help:        "Backtest MAPE of the selected model",
			ConstLabels: labels,
		}),

		SelectedModel: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "runrate_selected_model",
			Help:        "Set to 1 for the currently selected model",
			ConstLabels: labels,
		}, []string{"model"}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "runrate_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

// RecordFetch records the time spent fetching history.
func (m *Metrics) RecordFetch(seconds float64) {
	m.SourceFetchSeconds.Observe(seconds)
}

// RecordBacktest records the time spent backtesting.
func (m *Metrics) RecordBacktest(seconds float64) {
	m.BacktestSeconds.Observe(seconds)
}

// RecordGridSearch records the time spent in hyperparameter search.
func (m *Metrics) RecordGridSearch(seconds float64) {
	m.GridSearchSeconds.Observe(seconds)
}

// RecordPredict records the time spent fitting and predicting.
func (m *Metrics) RecordPredict(seconds float64) {
	m.PredictSeconds.Observe(seconds)
}

// SetForecastAge sets the current forecast age.
func (m *Metrics) SetForecastAge(seconds float64) {
	m.ForecastAgeSeconds.Set(seconds)
}

// SetAccuracy sets the accuracy gauges for the selected model.
func (m *Metrics) SetAccuracy(mae, mape float64) {
	m.BestMAE.Set(mae)
	m.BestMAPE.Set(mape)
}

// SetSelectedModel marks the winning model, clearing any previous winner.
func (m *Metrics) SetSelectedModel(model string) {
	m.SelectedModel.Reset()
	m.SelectedModel.WithLabelValues(model).Set(1)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
