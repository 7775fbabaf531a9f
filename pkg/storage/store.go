// Package storage provides forecast snapshot storage implementations.
package storage

import (
	"context"
	"math"
	"strconv"
	"time"
)

// Score is a metric value that survives JSON round-trips. The sentinel
// infinite score (and NaN) marshals as null and unmarshals back to +Inf,
// since encoding/json rejects non-finite numbers.
type Score float64

// MarshalJSON renders non-finite scores as null.
func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// UnmarshalJSON restores null back to the sentinel infinite score.
func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Score(math.Inf(1))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// Snapshot is the cached outcome of one forecast run for a named series.
type Snapshot struct {
	Series      string    `json:"series"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
	Steps       int       `json:"steps"`

	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`

	// Backtest accuracy of the selected model.
	MAE  Score `json:"mae"`
	MAPE Score `json:"mape"`

	// Params holds the grid-searched hyperparameters of the selected
	// model, when the tuned pipeline produced this snapshot.
	Params map[string]any `json:"params,omitempty"`
}

// Store is the interface shared by the snapshot backends.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, series string) (Snapshot, bool, error)
}
