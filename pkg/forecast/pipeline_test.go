package forecast

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/runrate-dev/runrate/pkg/timeseries"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func linearSeries(n int) *timeseries.Series {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &timeseries.Series{Name: "revenue"}
	for i := 0; i < n; i++ {
		s.Dates = append(s.Dates, start.Add(time.Duration(i)*timeseries.Day))
		s.Values = append(s.Values, 100+2*float64(i))
	}
	return s
}

func TestPipelineRunRoster(t *testing.T) {
	p := New(discard())

	outcome, err := p.Run(context.Background(), linearSeries(60), Options{Steps: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if outcome.Forecast.Len() != 10 {
		t.Errorf("forecast length = %d, want 10", outcome.Forecast.Len())
	}
	if outcome.Model == "" {
		t.Error("no model selected")
	}
	if len(outcome.Results) != 5 {
		t.Errorf("results = %d, want the full roster", len(outcome.Results))
	}
	if math.IsInf(outcome.MAE, 1) {
		t.Error("selected model should have a finite MAE")
	}

	// Forecast dates continue the history day by day.
	last := linearSeries(60).LastDate()
	for i, d := range outcome.Forecast.Dates {
		want := last.Add(time.Duration(i+1) * timeseries.Day)
		if !d.Equal(want) {
			t.Errorf("Dates[%d] = %v, want %v", i, d, want)
		}
	}
}

func TestPipelineRunTuned(t *testing.T) {
	p := New(discard())

	outcome, err := p.Run(context.Background(), linearSeries(60), Options{Steps: 5, Tune: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if outcome.Forecast.Len() != 5 {
		t.Errorf("forecast length = %d, want 5", outcome.Forecast.Len())
	}
	if len(outcome.SearchResults) == 0 {
		t.Error("tuned run should report per-family search results")
	}
	if outcome.MAE > 1 {
		t.Errorf("MAE = %v, want a near-exact fit on a ramp", outcome.MAE)
	}
}

func TestPipelineCleansInput(t *testing.T) {
	// Unsorted input with a duplicate and a NaN: the pipeline must accept
	// it after cleaning.
	s := linearSeries(30)
	s.Dates[3], s.Dates[4] = s.Dates[4], s.Dates[3]
	s.Values[10] = math.NaN()
	s.Dates[20] = s.Dates[19]

	p := New(discard())
	if _, err := p.Run(context.Background(), s, Options{Steps: 3}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestPipelineEmptySeries(t *testing.T) {
	p := New(discard())
	if _, err := p.Run(context.Background(), &timeseries.Series{}, Options{}); err == nil {
		t.Error("empty series should error")
	}
}

func TestPipelineDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	if got.TrainSize != 0.8 || got.Steps != 30 || got.Period != 7 {
		t.Errorf("withDefaults() = %+v", got)
	}

	got = Options{TrainSize: 1.5, Steps: -1, Period: -2}.withDefaults()
	if got.TrainSize != 0.8 || got.Steps != 30 || got.Period != 7 {
		t.Errorf("withDefaults() on invalid input = %+v", got)
	}
}
