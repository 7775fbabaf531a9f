package timeseries

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanSortsByDate(t *testing.T) {
	s := &Series{
		Dates:  []time.Time{day(2), day(0), day(1)},
		Values: []float64{30, 10, 20},
	}

	got, err := Clean(s, discard())
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	want := []float64{10, 20, 30}
	for i, v := range want {
		if got.Values[i] != v {
			t.Errorf("Values[%d] = %v, want %v", i, got.Values[i], v)
		}
	}
	for i := 1; i < got.Len(); i++ {
		if !got.Dates[i-1].Before(got.Dates[i]) {
			t.Errorf("dates not strictly increasing at %d", i)
		}
	}
}

func TestCleanDropsDuplicatesLastWins(t *testing.T) {
	s := &Series{
		Dates:  []time.Time{day(0), day(1), day(1), day(2)},
		Values: []float64{1, 2, 22, 3},
	}

	got, err := Clean(s, discard())
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	if got.Values[1] != 22 {
		t.Errorf("duplicate resolution kept %v, want the later row 22", got.Values[1])
	}
}

func TestCleanFillsMissing(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "interior NaN forward-filled",
			values: []float64{1, math.NaN(), 3},
			want:   []float64{1, 1, 3},
		},
		{
			name:   "leading NaN back-filled",
			values: []float64{math.NaN(), 2, 3},
			want:   []float64{2, 2, 3},
		},
		{
			name:   "trailing NaN forward-filled",
			values: []float64{1, 2, math.NaN()},
			want:   []float64{1, 2, 2},
		},
		{
			name:   "run of NaNs",
			values: []float64{math.NaN(), math.NaN(), 5, math.NaN(), math.NaN()},
			want:   []float64{5, 5, 5, 5, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(makeSeries(tt.values...), discard())
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			for i, v := range tt.want {
				if got.Values[i] != v {
					t.Errorf("Values[%d] = %v, want %v", i, got.Values[i], v)
				}
			}
		})
	}
}

func TestCleanErrors(t *testing.T) {
	if _, err := Clean(nil, discard()); err == nil {
		t.Error("nil series should error")
	}
	if _, err := Clean(&Series{}, discard()); err == nil {
		t.Error("empty series should error")
	}
	if _, err := Clean(makeSeries(math.NaN(), math.NaN()), discard()); err == nil {
		t.Error("all-NaN series should error")
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	s := &Series{
		Dates:  []time.Time{day(1), day(0)},
		Values: []float64{2, 1},
	}

	if _, err := Clean(s, discard()); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if s.Values[0] != 2 || !s.Dates[0].Equal(day(1)) {
		t.Error("Clean modified its input")
	}
}

func TestFlagOutliers(t *testing.T) {
	s := makeSeries(10, 10, 10, 10, 10, 10, 10, 100)

	flags := FlagOutliers(s, 2)
	if !flags[len(flags)-1] {
		t.Error("spike should be flagged")
	}
	for i := 0; i < len(flags)-1; i++ {
		if flags[i] {
			t.Errorf("flags[%d] = true for a normal point", i)
		}
	}

	flat := makeSeries(5, 5, 5)
	for _, f := range FlagOutliers(flat, 2) {
		if f {
			t.Error("constant series should flag nothing")
		}
	}
}
