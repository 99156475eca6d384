package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/swapwatch/eventlog"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

// fakeController serves a canned snapshot and records requests.
type fakeController struct {
	snap      *monitor.Snapshot
	refreshed int
	restarted []string
	queueFull bool
}

func (f *fakeController) Snapshot() *monitor.Snapshot { return f.snap }

func (f *fakeController) ForceRefresh() { f.refreshed++ }

func (f *fakeController) RequestRestart(unit string) bool {
	if f.queueFull {
		return false
	}
	f.restarted = append(f.restarted, unit)
	return true
}

func testSnapshot() *monitor.Snapshot {
	return &monitor.Snapshot{
		TakenAt:     time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		SwapPercent: 72.5,
		MemPercent:  60,
		State:       monitor.StateElevated,
		Ranking: monitor.Ranking{
			Entries: []monitor.RankEntry{
				{Label: "postgres", Unit: "postgresql.service", SwapBytes: 1 << 30, PIDs: []int{100, 101}},
				{Label: "chromium", SwapBytes: 1 << 28, PIDs: []int{200}},
			},
		},
		Cache:       monitor.CacheStats{Hits: 8, Misses: 2, HitRate: 80},
		Interval:    10 * time.Second,
		SampleCount: 42,
		SwapHistory: []float64{60, 65, 70, 72.5},
	}
}

func newTestModel(ctrl *fakeController) Model {
	m := NewModel(ctrl, eventlog.New(nil), time.Second)
	m.width = 100
	m.height = 30
	m.ready = true
	m.snapshot = ctrl.snap
	return m
}

func keyPress(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestTabSwitching(t *testing.T) {
	m := newTestModel(&fakeController{snap: testSnapshot()})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.activeTab != TabProcesses {
		t.Fatalf("after tab: activeTab = %v, want Processes", m.activeTab)
	}

	next, _ = m.Update(keyPress("3"))
	m = next.(Model)
	if m.activeTab != TabActivity {
		t.Fatalf("after 3: activeTab = %v, want Activity", m.activeTab)
	}

	next, _ = m.Update(keyPress("1"))
	m = next.(Model)
	if m.activeTab != TabOverview {
		t.Fatalf("after 1: activeTab = %v, want Overview", m.activeTab)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(&fakeController{snap: testSnapshot()})
	_, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("expected tea.QuitMsg, got %T", msg)
	}
}

func TestTickPullsSnapshot(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := NewModel(ctrl, nil, time.Second)

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if m.snapshot == nil {
		t.Fatal("tick should pull the snapshot")
	}
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
}

func TestForceRefreshKey(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := newTestModel(ctrl)

	next, _ := m.Update(keyPress("r"))
	m = next.(Model)
	if ctrl.refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", ctrl.refreshed)
	}
	if m.notice == "" {
		t.Fatal("expected a footer notice")
	}
}

func TestRestartSelectedServiceBacked(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := newTestModel(ctrl)
	m.activeTab = TabProcesses
	m.cursor = 0

	next, _ := m.Update(keyPress("s"))
	m = next.(Model)
	if len(ctrl.restarted) != 1 || ctrl.restarted[0] != "postgresql.service" {
		t.Fatalf("restarted = %v", ctrl.restarted)
	}
}

func TestRestartSelectedUnmanaged(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := newTestModel(ctrl)
	m.activeTab = TabProcesses
	m.cursor = 1

	next, _ := m.Update(keyPress("s"))
	m = next.(Model)
	if len(ctrl.restarted) != 0 {
		t.Fatalf("unmanaged entry should not be restartable: %v", ctrl.restarted)
	}
	if !strings.Contains(m.notice, "not service-backed") {
		t.Fatalf("notice = %q", m.notice)
	}
}

func TestRestartBlockedInReadOnly(t *testing.T) {
	snap := testSnapshot()
	snap.ReadOnly = true
	ctrl := &fakeController{snap: snap}
	m := newTestModel(ctrl)
	m.activeTab = TabProcesses

	next, _ := m.Update(keyPress("s"))
	m = next.(Model)
	if len(ctrl.restarted) != 0 {
		t.Fatal("read-only mode should block restarts")
	}
	if !strings.Contains(m.notice, "read-only") {
		t.Fatalf("notice = %q", m.notice)
	}
}

func TestCursorClamped(t *testing.T) {
	ctrl := &fakeController{snap: testSnapshot()}
	m := newTestModel(ctrl)
	m.activeTab = TabProcesses

	for i := 0; i < 5; i++ {
		next, _ := m.Update(keyPress("j"))
		m = next.(Model)
	}
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want clamp at 1", m.cursor)
	}

	for i := 0; i < 5; i++ {
		next, _ := m.Update(keyPress("k"))
		m = next.(Model)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want clamp at 0", m.cursor)
	}
}

func TestViewBeforeReady(t *testing.T) {
	m := NewModel(&fakeController{}, nil, time.Second)
	if got := m.View(); got != "Initializing..." {
		t.Fatalf("View before resize = %q", got)
	}
}

func TestOverviewContent(t *testing.T) {
	out := renderOverviewContent(testSnapshot(), 100, 24)

	for _, want := range []string{"Swap", "72.5%", "ELEVATED", "8 hits", "Swap Trend"} {
		if !strings.Contains(out, want) {
			t.Errorf("overview missing %q:\n%s", want, out)
		}
	}
}

func TestOverviewContentNilSnapshot(t *testing.T) {
	out := renderOverviewContent(nil, 100, 24)
	if !strings.Contains(out, "Waiting") {
		t.Fatalf("nil snapshot output = %q", out)
	}
}

func TestProcessesContent(t *testing.T) {
	out := renderProcessesContent(testSnapshot(), 0, 100, 24)

	for _, want := range []string{"postgres", "postgresql.service", "1.0 GiB", "chromium"} {
		if !strings.Contains(out, want) {
			t.Errorf("processes missing %q:\n%s", want, out)
		}
	}
}

func TestProcessesContentEmptyRanking(t *testing.T) {
	snap := testSnapshot()
	snap.Ranking.Entries = nil
	out := renderProcessesContent(snap, 0, 100, 24)
	if !strings.Contains(out, "No swap consumers") {
		t.Fatalf("empty ranking output = %q", out)
	}
}

func TestActivityContent(t *testing.T) {
	snap := testSnapshot()
	snap.RecentActions = []monitor.ActionRecord{
		{
			Time:       time.Date(2026, 8, 25, 11, 59, 0, 0, time.UTC),
			Kind:       monitor.ActionCacheClear,
			Outcome:    monitor.OutcomeSuccess,
			SwapBefore: 82,
			SwapAfter:  70,
		},
	}
	events := eventlog.New(nil)
	events.Warn("swap climbing fast")

	out := renderActivityContent(snap, events, 100, 30)
	for _, want := range []string{"cache_clear", "success", "swap climbing fast"} {
		if !strings.Contains(out, want) {
			t.Errorf("activity missing %q:\n%s", want, out)
		}
	}
}

func TestFormatPIDsElision(t *testing.T) {
	got := formatPIDs([]int{1, 2, 3, 4, 5, 6, 7}, 5)
	if !strings.Contains(got, "+2 more") {
		t.Fatalf("formatPIDs = %q", got)
	}
}
