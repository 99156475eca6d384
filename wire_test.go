package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/alert"
	"gitlab.com/tinyland/lab/swapwatch/config"
	"gitlab.com/tinyland/lab/swapwatch/eventlog"
	"gitlab.com/tinyland/lab/swapwatch/history"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceSpecs(t *testing.T) {
	entries := []config.ServiceEntry{
		{Match: "postgres", Unit: "postgresql.service", IncludeChildren: true},
		{Match: "redis-server", Unit: "redis.service"},
	}

	specs := serviceSpecs(entries)
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Match != "postgres" || specs[0].Unit != "postgresql.service" || !specs[0].IncludeChildren {
		t.Errorf("first spec = %+v", specs[0])
	}
	if specs[1].IncludeChildren {
		t.Error("include_children should default to false")
	}
}

func TestBuildApplication(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Monitor.StateDir = t.TempDir()
	cfg.Services = []config.ServiceEntry{
		{Match: "postgres", Unit: "postgresql.service"},
	}

	app, err := buildApplication(cfg, testLogger(), true)
	if err != nil {
		t.Fatalf("buildApplication: %v", err)
	}
	if app.driver == nil || app.events == nil || app.notifier == nil {
		t.Fatal("application is missing components")
	}
	if app.store == nil {
		t.Fatal("history store should be built when history is enabled")
	}
	if app.driver.CycleHook == nil {
		t.Fatal("cycle hook should be wired")
	}
}

func TestBuildApplicationHistoryDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.History.Enabled = false

	app, err := buildApplication(cfg, testLogger(), true)
	if err != nil {
		t.Fatalf("buildApplication: %v", err)
	}
	if app.store != nil {
		t.Fatal("history store should not be built when history is disabled")
	}
}

func TestCycleHookRecordsStateChange(t *testing.T) {
	store, err := history.NewStore(t.TempDir(), 10, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	events := eventlog.New(nil)
	notifier := alert.NewNotifier(nil, time.Minute, testLogger())
	hook := newCycleHook(store, notifier, events, testLogger())

	hook(&monitor.Snapshot{
		TakenAt:     time.Now(),
		SwapPercent: 82,
		MemPercent:  60,
		State:       monitor.StateElevated,
	})

	recent := events.Recent(5)
	if len(recent) != 1 {
		t.Fatalf("got %d events, want 1", len(recent))
	}
	if !strings.Contains(recent[0].Message, "elevated") {
		t.Errorf("event = %q", recent[0].Message)
	}
	if recent[0].Severity != eventlog.SeverityWarning {
		t.Errorf("severity = %v, want warning", recent[0].Severity)
	}

	points, err := store.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(points) != 1 || points[0].SwapPercent != 82 {
		t.Fatalf("points = %+v", points)
	}
}

func TestCycleHookActionLoggedOnce(t *testing.T) {
	events := eventlog.New(nil)
	notifier := alert.NewNotifier(nil, time.Minute, testLogger())
	hook := newCycleHook(nil, notifier, events, testLogger())

	snap := &monitor.Snapshot{
		TakenAt:     time.Now(),
		SwapPercent: 82,
		State:       monitor.StateElevated,
		RecentActions: []monitor.ActionRecord{
			{
				Time:       time.Now(),
				Kind:       monitor.ActionCacheClear,
				Outcome:    monitor.OutcomeSuccess,
				SwapBefore: 82,
				SwapAfter:  70,
			},
		},
	}

	hook(snap)
	hook(snap)

	var actionEvents int
	for _, ev := range events.Recent(0) {
		if strings.Contains(ev.Message, "cache_clear") {
			actionEvents++
		}
	}
	if actionEvents != 1 {
		t.Fatalf("action logged %d times, want 1", actionEvents)
	}
}

func TestCycleHookQuietCycle(t *testing.T) {
	events := eventlog.New(nil)
	notifier := alert.NewNotifier(nil, time.Minute, testLogger())
	hook := newCycleHook(nil, notifier, events, testLogger())

	hook(&monitor.Snapshot{
		TakenAt:     time.Now(),
		SwapPercent: 30,
		State:       monitor.StateNormal,
	})

	if got := events.Len(); got != 0 {
		t.Fatalf("quiet cycle produced %d events, want 0", got)
	}
}

func TestLoadSeeds(t *testing.T) {
	store, err := history.NewStore(t.TempDir(), 10, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, pct := range []float64{40, 55, 70} {
		if err := store.AppendPoint(history.Point{Time: time.Now(), SwapPercent: pct, State: "normal"}); err != nil {
			t.Fatalf("AppendPoint: %v", err)
		}
	}
	records := []monitor.ActionRecord{{Kind: monitor.ActionCacheClear, Outcome: monitor.OutcomeSuccess}}
	if err := store.SaveActions(records); err != nil {
		t.Fatalf("SaveActions: %v", err)
	}

	swap, actions := loadSeeds(store, testLogger())
	if len(swap) != 3 || swap[2] != 70 {
		t.Fatalf("swap seeds = %v", swap)
	}
	if len(actions) != 1 || actions[0].Kind != monitor.ActionCacheClear {
		t.Fatalf("action seeds = %+v", actions)
	}
}

func TestLoadSeedsNilStore(t *testing.T) {
	swap, actions := loadSeeds(nil, testLogger())
	if swap != nil || actions != nil {
		t.Fatal("nil store should seed nothing")
	}
}
