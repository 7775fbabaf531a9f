package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn  string // column name for dates (default: "date")
	ValueColumn string // column name for values (default: "value")
	DateFormat  string // date layout (default: "2006-01-02")
	HasHeader   bool   // whether the CSV has a header row (default: true)
}

// DefaultCSVOptions returns the defaults used by the HTTP CSV endpoints.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn:  "date",
		ValueColumn: "value",
		DateFormat:  "2006-01-02",
		HasHeader:   true,
	}
}

// LoadCSV reads a series from CSV data. Values that fail to parse as
// numbers become NaN so that Clean can fill them; dates that fail to parse
// are an error.
func LoadCSV(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	dateIdx, valueIdx := 0, 1
	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("timeseries: read csv header: %w", err)
		}
		dateIdx, valueIdx = -1, -1
		for i, col := range header {
			switch strings.TrimSpace(strings.ToLower(col)) {
			case strings.ToLower(opts.DateColumn):
				dateIdx = i
			case strings.ToLower(opts.ValueColumn):
				valueIdx = i
			}
		}
		if dateIdx < 0 || valueIdx < 0 {
			return nil, fmt.Errorf("timeseries: csv must have %q and %q columns",
				opts.DateColumn, opts.ValueColumn)
		}
	}

	s := &Series{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("timeseries: read csv row: %w", err)
		}
		if len(record) <= dateIdx || len(record) <= valueIdx {
			continue
		}

		date, err := parseDate(record[dateIdx], opts.DateFormat)
		if err != nil {
			return nil, fmt.Errorf("timeseries: parse date %q: %w", record[dateIdx], err)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			// Non-numeric values are coerced to NaN and filled during Clean.
			value = math.NaN()
		}

		s.Dates = append(s.Dates, date)
		s.Values = append(s.Values, value)
	}

	if s.Empty() {
		return nil, errors.New("timeseries: csv contains no data rows")
	}
	return s, nil
}

// WriteCSV writes the series as date,value rows with a header.
func WriteCSV(w io.Writer, s *Series, dateFormat string) error {
	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "value"}); err != nil {
		return fmt.Errorf("timeseries: write csv header: %w", err)
	}
	for i := range s.Values {
		row := []string{
			s.Dates[i].Format(dateFormat),
			strconv.FormatFloat(s.Values[i], 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("timeseries: write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// parseDate tries the configured layout first, then a few common fallbacks.
func parseDate(raw, layout string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(layout, raw); err == nil {
		return t, nil
	}
	for _, fallback := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if fallback == layout {
			continue
		}
		if t, err := time.Parse(fallback, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
