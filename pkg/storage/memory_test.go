package storage

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"
)

func testSnapshot(series string) Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Series:      series,
		Model:       "naive",
		GeneratedAt: time.Now().UTC(),
		Steps:       2,
		Dates:       []time.Time{start, start.Add(24 * time.Hour)},
		Values:      []float64{10, 11},
		MAE:         1.5,
		MAPE:        0.1,
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, testSnapshot("revenue")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := s.GetLatest(ctx, "revenue")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if !found {
		t.Fatal("snapshot not found")
	}
	if got.Model != "naive" || got.Steps != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryStoreMissingSeries(t *testing.T) {
	s := NewMemoryStore()

	_, found, err := s.GetLatest(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if found {
		t.Error("found a snapshot that was never stored")
	}
}

func TestMemoryStoreEmptySeriesName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, Snapshot{}); err == nil {
		t.Error("Put with empty series name should error")
	}
	if _, _, err := s.GetLatest(ctx, ""); err == nil {
		t.Error("GetLatest with empty series name should error")
	}
}

func TestMemoryStoreReplacesPrevious(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := testSnapshot("revenue")
	first.Model = "naive"
	second := testSnapshot("revenue")
	second.Model = "linear_regression"

	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _, err := s.GetLatest(ctx, "revenue")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if got.Model != "linear_regression" {
		t.Errorf("Model = %q, want the replacement", got.Model)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s, err := NewMemoryStoreWithTTL(50*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryStoreWithTTL() error = %v", err)
	}
	defer s.Stop()
	ctx := context.Background()

	snap := testSnapshot("revenue")
	snap.GeneratedAt = time.Now().Add(-time.Second)
	if err := s.Put(ctx, snap); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, found, err := s.GetLatest(ctx, "revenue")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if found {
		t.Error("expired snapshot should be treated as absent")
	}
}

func TestMemoryStoreTTLValidation(t *testing.T) {
	if _, err := NewMemoryStoreWithTTL(0, time.Minute); err == nil {
		t.Error("zero ttl should error")
	}
	if _, err := NewMemoryStoreWithTTL(-time.Minute, time.Minute); err == nil {
		t.Error("negative ttl should error")
	}
}

func TestMemoryStoreStopIdempotent(t *testing.T) {
	s, err := NewMemoryStoreWithTTL(time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryStoreWithTTL() error = %v", err)
	}
	s.Stop()
	s.Stop()

	NewMemoryStore().Stop() // no-op without TTL
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, testSnapshot("revenue"))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = s.GetLatest(ctx, "revenue")
		}()
	}
	wg.Wait()
}

func TestScoreJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		score    Score
		wantJSON string
	}{
		{name: "finite", score: 1.5, wantJSON: "1.5"},
		{name: "positive infinity", score: Score(math.Inf(1)), wantJSON: "null"},
		{name: "nan", score: Score(math.NaN()), wantJSON: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.score)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.wantJSON {
				t.Errorf("Marshal() = %s, want %s", data, tt.wantJSON)
			}
		})
	}

	var s Score
	if err := json.Unmarshal([]byte("null"), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !math.IsInf(float64(s), 1) {
		t.Errorf("null unmarshaled to %v, want +Inf sentinel", float64(s))
	}
}

func TestSnapshotMarshalsWithInfScores(t *testing.T) {
	snap := testSnapshot("revenue")
	snap.MAE = Score(math.Inf(1))
	snap.MAPE = Score(math.Inf(1))

	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("Marshal() error = %v, sentinel scores must serialize", err)
	}
}
