// Package router configures HTTP routes for the forecaster's HTTP API.
//
// Routes configured:
//   - POST /v1/forecast - Run the default-roster pipeline on posted data
//   - POST /v1/forecast/search - Run the hyperparameter-tuned pipeline
//   - POST /v1/forecast/csv - Run the pipeline on a posted CSV body
//   - POST /v1/report - Run the pipeline and return a CSV report
//   - GET /v1/forecast/latest?series=<name> - Retrieve latest stored snapshot
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// Forecast responses carry the selected model, its backtest accuracy and
// the per-model comparison. Metric values that could not be computed render
// as JSON null.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runrate-dev/runrate/cmd/forecaster/metrics"
	"github.com/runrate-dev/runrate/pkg/forecast"
	"github.com/runrate-dev/runrate/pkg/httpx"
	"github.com/runrate-dev/runrate/pkg/report"
	"github.com/runrate-dev/runrate/pkg/storage"
	"github.com/runrate-dev/runrate/pkg/timeseries"
)

var seriesNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,252}$`)

const pipelineTimeout = 60 * time.Second

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	pipeline *forecast.Pipeline
	store    storage.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// SetupRoutes configures HTTP endpoints for the forecaster.
func SetupRoutes(pipeline *forecast.Pipeline, store storage.Store, m *metrics.Metrics, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Router{pipeline: pipeline, store: store, metrics: m, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", httpx.HealthHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/forecast", rt.handleForecast(false))
	mux.HandleFunc("POST /v1/forecast/search", rt.handleForecast(true))
	mux.HandleFunc("POST /v1/forecast/csv", rt.handleForecastCSV)
	mux.HandleFunc("POST /v1/report", rt.handleReport)
	mux.HandleFunc("GET /v1/forecast/latest", rt.handleLatest)

	return mux
}

// forecastRequest is the JSON body of the forecast endpoints.
type forecastRequest struct {
	Series    string    `json:"series"`
	Dates     []string  `json:"dates"`
	Values    []float64 `json:"values"`
	Steps     int       `json:"steps"`
	TrainSize float64   `json:"trainSize"`
	Period    int       `json:"period"`
}

// toSeries parses the request into a raw series.
func (req *forecastRequest) toSeries() (*timeseries.Series, error) {
	if len(req.Dates) == 0 {
		return nil, fmt.Errorf("dates are required")
	}
	if len(req.Dates) != len(req.Values) {
		return nil, fmt.Errorf("dates (%d) and values (%d) must have the same length",
			len(req.Dates), len(req.Values))
	}

	name := req.Series
	if name == "" {
		name = "default"
	}
	if !seriesNameRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid series name %q", name)
	}

	s := &timeseries.Series{Name: name}
	for i, raw := range req.Dates {
		date, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("parse date[%d] %q: %w", i, raw, err)
		}
		s.Dates = append(s.Dates, date)
		s.Values = append(s.Values, req.Values[i])
	}
	return s, nil
}

func (req *forecastRequest) options(tune bool) forecast.Options {
	return forecast.Options{
		TrainSize: req.TrainSize,
		Steps:     req.Steps,
		Period:    req.Period,
		Tune:      tune,
	}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// modelScore is the per-model entry of the comparison table. Unscorable
// metrics render as null.
type modelScore struct {
	Model string        `json:"model"`
	MAE   storage.Score `json:"mae"`
	MAPE  storage.Score `json:"mape"`
	Err   string        `json:"error,omitempty"`
}

// forecastResponse is the JSON body of a successful forecast run.
type forecastResponse struct {
	Series      string         `json:"series"`
	Model       string         `json:"model"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Dates       []string       `json:"dates"`
	Values      []float64      `json:"values"`
	MAE         storage.Score  `json:"mae"`
	MAPE        storage.Score  `json:"mape"`
	Params      map[string]any `json:"params,omitempty"`
	Models      []modelScore   `json:"models,omitempty"`
}

func buildResponse(outcome *forecast.Outcome) forecastResponse {
	resp := forecastResponse{
		Series:      outcome.Forecast.Name,
		Model:       outcome.Model,
		GeneratedAt: outcome.GeneratedAt,
		MAE:         storage.Score(outcome.MAE),
		MAPE:        storage.Score(outcome.MAPE),
		Params:      outcome.Params,
	}
	for i := range outcome.Forecast.Values {
		resp.Dates = append(resp.Dates, outcome.Forecast.Dates[i].Format("2006-01-02"))
		resp.Values = append(resp.Values, outcome.Forecast.Values[i])
	}
	for _, res := range outcome.Results {
		resp.Models = append(resp.Models, modelScore{
			Model: res.Model,
			MAE:   storage.Score(res.MAE),
			MAPE:  storage.Score(res.MAPE),
			Err:   res.Err,
		})
	}
	for _, res := range outcome.SearchResults {
		resp.Models = append(resp.Models, modelScore{
			Model: res.Family.String(),
			MAE:   storage.Score(res.MAE),
		})
	}
	return resp
}

// handleForecast runs the pipeline on a posted JSON series. tune selects
// the grid-searched variant.
func (rt *Router) handleForecast(tune bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forecastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		raw, err := req.toSeries()
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		outcome, ok := rt.run(w, r, raw, req.options(tune))
		if !ok {
			return
		}
		rt.persist(r.Context(), outcome)

		if err := httpx.WriteJSON(w, http.StatusOK, buildResponse(outcome)); err != nil {
			rt.logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// handleForecastCSV runs the pipeline on a posted CSV body. The series
// name, steps, and tuning come from query parameters.
func (rt *Router) handleForecastCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := forecast.Options{Tune: q.Get("tune") == "true"}
	fmt.Sscanf(q.Get("steps"), "%d", &opts.Steps)
	fmt.Sscanf(q.Get("trainSize"), "%f", &opts.TrainSize)
	fmt.Sscanf(q.Get("period"), "%d", &opts.Period)

	name := q.Get("series")
	if name == "" {
		name = "default"
	}
	if !seriesNameRegex.MatchString(name) {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid series name")
		return
	}

	raw, err := timeseries.LoadCSV(r.Body, nil)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	raw.Name = name

	outcome, ok := rt.run(w, r, raw, opts)
	if !ok {
		return
	}
	rt.persist(r.Context(), outcome)

	if err := httpx.WriteJSON(w, http.StatusOK, buildResponse(outcome)); err != nil {
		rt.logger.Error("failed to write JSON response", "error", err)
	}
}

// handleReport runs the default-roster pipeline and returns a CSV report.
func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	raw, err := req.toSeries()
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	outcome, ok := rt.run(w, r, raw, req.options(false))
	if !ok {
		return
	}

	rep := &report.Report{
		Series:      raw.Name,
		Model:       outcome.Model,
		GeneratedAt: outcome.GeneratedAt,
		Forecast:    outcome.Forecast,
		Results:     outcome.Results,
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-report.csv", raw.Name))
	if err := rep.WriteCSV(w); err != nil {
		rt.logger.Error("failed to write CSV report", "error", err)
	}
}

// handleLatest returns the stored snapshot for GET /v1/forecast/latest.
func (rt *Router) handleLatest(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	if series == "" {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "series parameter required")
		return
	}
	if !seriesNameRegex.MatchString(series) {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid series name format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	snapshot, found, err := rt.store.GetLatest(ctx, series)
	if err != nil {
		rt.logger.Error("failed to get snapshot", "series", series, "error", err)
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for series %q", series))
		return
	}

	if rt.metrics != nil {
		rt.metrics.SetForecastAge(time.Since(snapshot.GeneratedAt).Seconds())
	}

	if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
		rt.logger.Error("failed to write JSON response", "error", err)
	}
}

// run executes the pipeline with a bounded deadline and handles the error
// reply. The boolean reports success.
func (rt *Router) run(w http.ResponseWriter, r *http.Request, raw *timeseries.Series, opts forecast.Options) (*forecast.Outcome, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), pipelineTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := rt.pipeline.Run(ctx, raw, opts)
	if err != nil {
		rt.logger.Error("forecast pipeline failed", "series", raw.Name, "error", err)
		if rt.metrics != nil {
			rt.metrics.RecordError("pipeline", "run_failed")
		}
		httpx.WriteErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}

	if rt.metrics != nil {
		if opts.Tune {
			rt.metrics.RecordGridSearch(outcome.BacktestDuration.Seconds())
		} else {
			rt.metrics.RecordBacktest(outcome.BacktestDuration.Seconds())
		}
		rt.metrics.RecordPredict(outcome.PredictDuration.Seconds())
		rt.metrics.SetAccuracy(outcome.MAE, outcome.MAPE)
		rt.metrics.SetSelectedModel(outcome.Model)
	}

	rt.logger.Info("forecast request served",
		"series", raw.Name,
		"model", outcome.Model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcome, true
}

// persist stores the outcome so GET /v1/forecast/latest can serve it.
// Storage failures are logged, not surfaced: the forecast was produced.
func (rt *Router) persist(ctx context.Context, outcome *forecast.Outcome) {
	if rt.store == nil {
		return
	}

	snapshot := storage.Snapshot{
		Series:      outcome.Forecast.Name,
		Model:       outcome.Model,
		GeneratedAt: outcome.GeneratedAt,
		Steps:       outcome.Forecast.Len(),
		Dates:       outcome.Forecast.Dates,
		Values:      outcome.Forecast.Values,
		MAE:         storage.Score(outcome.MAE),
		MAPE:        storage.Score(outcome.MAPE),
		Params:      outcome.Params,
	}

	if err := rt.store.Put(ctx, snapshot); err != nil {
		rt.logger.Error("failed to store snapshot", "series", snapshot.Series, "error", err)
		if rt.metrics != nil {
			rt.metrics.RecordError("store", "put_failed")
		}
	}
}
