package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// CSVSource reads a series from a local CSV file on every Fetch, so a file
// refreshed by an external job is picked up on the next tick.
type CSVSource struct {
	// Path is the CSV file to read (required).
	Path string

	// Options controls column names and the date layout. Nil uses the
	// defaults (date,value columns, 2006-01-02 dates).
	Options *timeseries.CSVOptions
}

func newCSVSource(config map[string]string) (*CSVSource, error) {
	path := config["path"]
	if path == "" {
		return nil, errors.New("ingest: csv source requires path")
	}

	opts := timeseries.DefaultCSVOptions()
	if v := config["dateColumn"]; v != "" {
		opts.DateColumn = v
	}
	if v := config["valueColumn"]; v != "" {
		opts.ValueColumn = v
	}
	if v := config["dateFormat"]; v != "" {
		opts.DateFormat = v
	}

	return &CSVSource{Path: path, Options: opts}, nil
}

func (c *CSVSource) Name() string { return "csv" }

// Fetch reads and parses the CSV file.
func (c *CSVSource) Fetch(ctx context.Context) (*timeseries.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", c.Path, err)
	}
	defer f.Close()

	s, err := timeseries.LoadCSV(f, c.Options)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(c.Path)
	s.Name = base[:len(base)-len(filepath.Ext(base))]
	return s, nil
}
