package backtest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/runrate-dev/runrate/pkg/models"
	"github.com/runrate-dev/runrate/pkg/timeseries"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeSeries(values ...float64) *timeseries.Series {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, len(values))
	for i := range dates {
		dates[i] = start.Add(time.Duration(i) * timeseries.Day)
	}
	return &timeseries.Series{Name: "test", Dates: dates, Values: values}
}

func linearSeries(n int) *timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 2*float64(i)
	}
	return makeSeries(values...)
}

// failingModel always errors, for failure isolation tests.
type failingModel struct{ name string }

func (m *failingModel) Name() string          { return m.name }
func (m *failingModel) Family() models.Family { return models.FamilyNaive }
func (m *failingModel) Fit(ctx context.Context, s *timeseries.Series) error {
	return errors.New("fit exploded")
}
func (m *failingModel) Predict(steps int) (*timeseries.Series, error) {
	return nil, errors.New("unreachable")
}

// panickyModel panics during Fit.
type panickyModel struct{}

func (m *panickyModel) Name() string          { return "panicky" }
func (m *panickyModel) Family() models.Family { return models.FamilyNaive }
func (m *panickyModel) Fit(ctx context.Context, s *timeseries.Series) error {
	panic("boom")
}
func (m *panickyModel) Predict(steps int) (*timeseries.Series, error) {
	panic("boom")
}

func TestSingleScoresModel(t *testing.T) {
	b := New(nil, discard())
	res := b.Single(context.Background(), models.NewNaiveModel(), linearSeries(50), 0.8, 10)

	if res.Failed() {
		t.Fatalf("unexpected failure: %s", res.Err)
	}
	if len(res.Predictions) != 10 {
		t.Errorf("predictions = %d, want 10", len(res.Predictions))
	}
	if len(res.Actuals) != 10 {
		t.Errorf("actuals = %d, want 10", len(res.Actuals))
	}
	if res.MAE <= 0 {
		t.Errorf("MAE = %v, want positive for the naive model on a ramp", res.MAE)
	}
}

func TestSingleHorizonShrinks(t *testing.T) {
	// 50 observations, 80% train leaves 10 test points; horizon 30 must
	// shrink to 10 instead of failing.
	b := New(nil, discard())
	res := b.Single(context.Background(), models.NewNaiveModel(), linearSeries(50), 0.8, 30)

	if res.Failed() {
		t.Fatalf("unexpected failure: %s", res.Err)
	}
	if len(res.Predictions) != 10 {
		t.Errorf("predictions = %d, want 10 after shrinking", len(res.Predictions))
	}
}

func TestSingleEmptyTestWindow(t *testing.T) {
	// trainSize 1.0 leaves nothing to test against: sentinel scores, no
	// error tag.
	b := New(nil, discard())
	res := b.Single(context.Background(), models.NewNaiveModel(), linearSeries(20), 1.0, 5)

	if res.Failed() {
		t.Fatalf("empty test window must not be a failure, got %s", res.Err)
	}
	if !math.IsInf(res.MAE, 1) || !math.IsInf(res.MAPE, 1) {
		t.Errorf("MAE, MAPE = %v, %v, want +Inf sentinels", res.MAE, res.MAPE)
	}
	if len(res.Predictions) != 0 {
		t.Errorf("predictions = %d, want 0", len(res.Predictions))
	}
}

func TestSingleFitFailure(t *testing.T) {
	b := New(nil, discard())
	res := b.Single(context.Background(), &failingModel{name: "bad"}, linearSeries(50), 0.8, 5)

	if !res.Failed() {
		t.Fatal("expected a failed result")
	}
	if !math.IsInf(res.MAE, 1) {
		t.Errorf("MAE = %v, want +Inf for a failed model", res.MAE)
	}
}

func TestSinglePanicIsolated(t *testing.T) {
	b := New(nil, discard())
	res := b.Single(context.Background(), &panickyModel{}, linearSeries(50), 0.8, 5)

	if !res.Failed() {
		t.Fatal("panic must surface as a failed result, not crash the run")
	}
}

func TestAllPreservesRosterOrderAndIsolatesFailures(t *testing.T) {
	roster := []models.Model{
		models.NewNaiveModel(),
		&failingModel{name: "bad"},
		models.NewLinearRegressionModel(),
	}
	b := New(roster, discard())
	results := b.All(context.Background(), linearSeries(60), 0.8, 10)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	wantOrder := []string{"naive", "bad", "linear_regression"}
	for i, w := range wantOrder {
		if results[i].Model != w {
			t.Errorf("results[%d].Model = %q, want %q", i, results[i].Model, w)
		}
	}
	if !results[1].Failed() {
		t.Error("failing model should carry an error")
	}
	if results[0].Failed() || results[2].Failed() {
		t.Error("one model's failure must not taint the others")
	}
}

func TestDefaultRosterOnLinearData(t *testing.T) {
	b := New(models.DefaultRoster(), discard())
	results := b.All(context.Background(), linearSeries(60), 0.8, 10)

	var lr *Result
	for i := range results {
		if results[i].Model == "linear_regression" {
			lr = &results[i]
		}
	}
	if lr == nil {
		t.Fatal("linear_regression missing from results")
	}
	if lr.Failed() {
		t.Fatalf("linear_regression failed: %s", lr.Err)
	}
	if lr.MAE > 1e-6 {
		t.Errorf("linear_regression MAE = %v, want ~0 for an exact linear fit", lr.MAE)
	}

	best, ok := SelectBest(results)
	if !ok {
		t.Fatal("SelectBest returned no result")
	}
	if best.Failed() {
		t.Fatalf("best result failed: %s", best.Err)
	}
	if best.MAE > lr.MAE {
		t.Errorf("best MAE = %v, worse than linear_regression's %v", best.MAE, lr.MAE)
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    string
		wantOK  bool
	}{
		{
			name: "lowest MAE wins",
			results: []Result{
				{Model: "a", MAE: 5},
				{Model: "b", MAE: 2},
				{Model: "c", MAE: 9},
			},
			want:   "b",
			wantOK: true,
		},
		{
			name: "tie keeps the first",
			results: []Result{
				{Model: "a", MAE: 3},
				{Model: "b", MAE: 3},
			},
			want:   "a",
			wantOK: true,
		},
		{
			name: "failed entries skipped",
			results: []Result{
				{Model: "a", MAE: math.Inf(1), Err: "boom"},
				{Model: "b", MAE: 7},
			},
			want:   "b",
			wantOK: true,
		},
		{
			name: "all failed returns the first",
			results: []Result{
				{Model: "a", MAE: math.Inf(1), Err: "boom"},
				{Model: "b", MAE: math.Inf(1), Err: "bang"},
			},
			want:   "a",
			wantOK: true,
		},
		{
			name:    "empty input",
			results: nil,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectBest(tt.results)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Model != tt.want {
				t.Errorf("Model = %q, want %q", got.Model, tt.want)
			}
		})
	}
}
