package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

// HTTPSource pulls a series from any JSON REST API, extracting dates and
// values with gjson path expressions.
//
// Example configuration for a metrics API:
//
//	source := &HTTPSource{
//	    URL:       "https://api.example.com/usage",
//	    DatePath:  "data.#.date",
//	    ValuePath: "data.#.value",
//	    Headers:   map[string]string{"Authorization": "Bearer token123"},
//	}
type HTTPSource struct {
	// URL is the endpoint to call (required).
	URL string

	// Method is the HTTP method. Defaults to GET if empty.
	Method string

	// Body is the request body for POST/PUT calls.
	Body string

	// Headers are custom HTTP headers, e.g. authentication tokens.
	Headers map[string]string

	// DatePath is the gjson path to the dates. Use "#" for arrays, e.g.
	// "data.#.date" extracts every date from the data array.
	DatePath string

	// ValuePath is the gjson path to the values. Must yield the same
	// number of elements as DatePath.
	ValuePath string

	// DateFormat specifies how to parse dates:
	//   "2006-01-02" style layout (default "2006-01-02")
	//   "rfc3339"    - RFC3339 strings
	//   "unix"       - Unix seconds
	//   "unix_milli" - Unix milliseconds
	DateFormat string

	// SeriesName labels the fetched series. Defaults to "http".
	SeriesName string

	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client
}

func newHTTPSource(config map[string]string) (*HTTPSource, error) {
	s := &HTTPSource{
		URL:        config["url"],
		Method:     config["method"],
		Body:       config["body"],
		DatePath:   config["datePath"],
		ValuePath:  config["valuePath"],
		DateFormat: config["dateFormat"],
		SeriesName: config["series"],
	}

	if raw := config["headers"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Headers); err != nil {
			return nil, fmt.Errorf("ingest: parse headers: %w", err)
		}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (h *HTTPSource) validate() error {
	if h.URL == "" {
		return errors.New("ingest: http source requires url")
	}
	if h.DatePath == "" || h.ValuePath == "" {
		return errors.New("ingest: http source requires datePath and valuePath")
	}
	return nil
}

func (h *HTTPSource) Name() string { return "http" }

// Fetch calls the configured endpoint and extracts the series using the
// configured JSON paths.
func (h *HTTPSource) Fetch(ctx context.Context) (*timeseries.Series, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if h.Body != "" {
		bodyReader = strings.NewReader(h.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("ingest: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ingest: http status %d: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ingest: read response: %w", err)
	}

	dates := gjson.GetBytes(respBody, h.DatePath)
	values := gjson.GetBytes(respBody, h.ValuePath)

	if !dates.Exists() {
		return nil, fmt.Errorf("ingest: date path %q not found in response", h.DatePath)
	}
	if !values.Exists() {
		return nil, fmt.Errorf("ingest: value path %q not found in response", h.ValuePath)
	}

	dateArray := dates.Array()
	valArray := values.Array()
	if len(dateArray) != len(valArray) {
		return nil, fmt.Errorf("ingest: date count (%d) != value count (%d)",
			len(dateArray), len(valArray))
	}
	if len(dateArray) == 0 {
		return nil, errors.New("ingest: response contains no data points")
	}

	s := &timeseries.Series{Name: h.SeriesName}
	if s.Name == "" {
		s.Name = "http"
	}
	for i := range dateArray {
		date, err := h.parseDate(dateArray[i])
		if err != nil {
			return nil, fmt.Errorf("ingest: parse date[%d]: %w", i, err)
		}
		s.Dates = append(s.Dates, date)
		s.Values = append(s.Values, valArray[i].Float())
	}

	return s, nil
}

// parseDate parses a date according to the configured format.
func (h *HTTPSource) parseDate(value gjson.Result) (time.Time, error) {
	format := h.DateFormat
	if format == "" {
		format = "2006-01-02"
	}

	switch format {
	case "rfc3339":
		return time.Parse(time.RFC3339, value.String())

	case "unix":
		sec := value.Float()
		return time.Unix(int64(sec), 0).UTC(), nil

	case "unix_milli":
		ms := value.Float()
		return time.UnixMilli(int64(ms)).UTC(), nil

	default:
		return time.Parse(format, value.String())
	}
}
