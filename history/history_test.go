package history

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

func newTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewStore(t.TempDir(), maxEntries, logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func point(offset time.Duration, swap float64) Point {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	return Point{Time: base.Add(offset), SwapPercent: swap, MemPercent: 50, State: "normal"}
}

func TestPointsEmptyStore(t *testing.T) {
	s := newTestStore(t, 10)
	points, err := s.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no points, got %d", len(points))
	}
}

func TestAppendPointRoundTrip(t *testing.T) {
	s := newTestStore(t, 10)

	if err := s.AppendPoint(point(0, 40)); err != nil {
		t.Fatalf("AppendPoint: %v", err)
	}
	if err := s.AppendPoint(point(time.Minute, 45)); err != nil {
		t.Fatalf("AppendPoint: %v", err)
	}

	points, err := s.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].SwapPercent != 40 || points[1].SwapPercent != 45 {
		t.Fatalf("points out of order: %+v", points)
	}
}

func TestAppendPointTrimsToMax(t *testing.T) {
	s := newTestStore(t, 3)

	for i := 0; i < 5; i++ {
		if err := s.AppendPoint(point(time.Duration(i)*time.Minute, float64(40+i))); err != nil {
			t.Fatalf("AppendPoint: %v", err)
		}
	}

	points, err := s.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points after trim, got %d", len(points))
	}
	// Oldest entries dropped first.
	if points[0].SwapPercent != 42 || points[2].SwapPercent != 44 {
		t.Fatalf("wrong entries survived the trim: %+v", points)
	}
}

func TestActionsRoundTrip(t *testing.T) {
	s := newTestStore(t, 10)

	records := []monitor.ActionRecord{
		{
			Time:       time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
			Kind:       monitor.ActionServiceRestart,
			Target:     "postgresql.service",
			Outcome:    monitor.OutcomeSuccess,
			SwapBefore: 85,
			SwapAfter:  60,
		},
	}
	if err := s.SaveActions(records); err != nil {
		t.Fatalf("SaveActions: %v", err)
	}

	loaded, err := s.Actions()
	if err != nil {
		t.Fatalf("Actions: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(loaded))
	}
	if loaded[0].Target != "postgresql.service" || loaded[0].Outcome != monitor.OutcomeSuccess {
		t.Fatalf("record = %+v", loaded[0])
	}
}

func TestCorruptedFileTreatedAsEmpty(t *testing.T) {
	s := newTestStore(t, 10)

	path := filepath.Join(s.dir, "metrics.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	points, err := s.Points()
	if err != nil {
		t.Fatalf("Points on corrupted file: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty result, got %+v", points)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupted file should have been removed")
	}
}

func TestClearRemovesFiles(t *testing.T) {
	s := newTestStore(t, 10)
	if err := s.AppendPoint(point(0, 40)); err != nil {
		t.Fatalf("AppendPoint: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	points, err := s.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no points after Clear, got %d", len(points))
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t, 10)
	if err := s.AppendPoint(point(0, 40)); err != nil {
		t.Fatalf("AppendPoint: %v", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "metrics.json" {
			t.Errorf("unexpected file in store dir: %s", e.Name())
		}
	}
}
