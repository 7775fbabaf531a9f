// Package report renders forecast run results for export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/runrate-dev/runrate/pkg/backtest"
	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// Report bundles everything a forecast run produced: the winning model,
// its forecast, and the per-model backtest comparison.
type Report struct {
	Series      string
	Model       string
	GeneratedAt time.Time
	Forecast    *timeseries.Series
	Results     []backtest.Result
}

// WriteCSV renders the report as CSV with two sections. The first lists the
// forecast as date,value rows; the second compares every candidate model by
// backtest accuracy. Unscorable metrics render as empty cells and failed
// models carry their error message.
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	rows := [][]string{
		{"series", r.Series},
		{"model", r.Model},
		{"generated_at", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"date", "forecast"},
	}
	if r.Forecast != nil {
		for i := range r.Forecast.Values {
			rows = append(rows, []string{
				r.Forecast.Dates[i].Format("2006-01-02"),
				strconv.FormatFloat(r.Forecast.Values[i], 'f', -1, 64),
			})
		}
	}

	rows = append(rows, []string{}, []string{"model", "mae", "mape", "error"})
	for _, res := range r.Results {
		rows = append(rows, []string{
			res.Model,
			formatMetric(res.MAE),
			formatMetric(res.MAPE),
			res.Err,
		})
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// formatMetric renders a metric value, leaving the cell empty when the
// model could not be scored.
func formatMetric(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
