// Package ingest provides pull sources that fetch a raw time series from
// an external system and normalize it for the forecasting pipeline.
//
// Sources are intentionally thin: they pull raw date/value pairs, sort
// them chronologically, and leave cleaning and forecasting to the upper
// layers. Available sources:
//   - CSVSource  - reads a local CSV file with date and value columns
//   - HTTPSource - calls any JSON REST API, extracting dates and values
//     via gjson path expressions
package ingest

import (
	"context"
	"fmt"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// Source fetches a raw series from an external system.
//
// Fetch is synchronous and must respect context cancellation. The returned
// series is sorted but not yet cleaned.
type Source interface {
	// Fetch retrieves the series. It must handle transient errors
	// gracefully and never panic.
	Fetch(ctx context.Context) (*timeseries.Series, error)

	// Name returns a short, unique identifier for the source, e.g. "csv"
	// or "http".
	Name() string
}

// New creates a source from a kind and a generic configuration map. This
// is the extension point for adding new source types.
//
// Supported kinds:
//   - "csv":  requires "path"; accepts "dateFormat"
//   - "http": requires "url", "datePath", "valuePath"; accepts "method",
//     "body", "headers" (JSON object), "dateFormat"
func New(kind string, config map[string]string) (Source, error) {
	switch kind {
	case "csv":
		return newCSVSource(config)
	case "http":
		return newHTTPSource(config)
	default:
		return nil, fmt.Errorf("ingest: unknown source kind %q (must be csv or http)", kind)
	}
}
