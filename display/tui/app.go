// Package tui implements the interactive swapwatch dashboard on
// bubbletea: an overview tab with the swap gauge and trend, a process
// tab listing the top swap consumers, and an activity tab with the
// remediation log.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/swapwatch/eventlog"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

// Tab identifies which tab is currently active.
type Tab int

const (
	TabOverview Tab = iota
	TabProcesses
	TabActivity
	tabCount // sentinel for wrapping
)

// tabNames maps each Tab value to its display label.
var tabNames = map[Tab]string{
	TabOverview:  "Overview",
	TabProcesses: "Processes",
	TabActivity:  "Activity",
}

// Controller is the monitoring surface the TUI drives. The cycle driver
// implements it.
type Controller interface {
	Snapshot() *monitor.Snapshot
	ForceRefresh()
	RequestRestart(unit string) bool
}

// tickMsg asks the model to re-read the snapshot.
type tickMsg time.Time

// Model is the top-level Bubbletea model for the swapwatch TUI.
type Model struct {
	controller Controller
	events     *eventlog.Log
	interval   time.Duration

	activeTab Tab
	width     int
	height    int
	ready     bool
	showHelp  bool

	snapshot *monitor.Snapshot
	cursor   int
	notice   string
}

// NewModel returns an initialized Model polling the controller at the
// given interval.
func NewModel(controller Controller, events *eventlog.Log, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	return Model{
		controller: controller,
		events:     events,
		interval:   interval,
		activeTab:  TabOverview,
	}
}

// Init implements tea.Model. It starts the snapshot polling ticker.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It handles key presses, resizes and
// snapshot refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.NextTab):
			m.activeTab = (m.activeTab + 1) % tabCount
			m.cursor = 0
		case key.Matches(msg, keys.PrevTab):
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			m.cursor = 0
		case key.Matches(msg, keys.Tab1):
			m.activeTab = TabOverview
		case key.Matches(msg, keys.Tab2):
			m.activeTab = TabProcesses
		case key.Matches(msg, keys.Tab3):
			m.activeTab = TabActivity
		case key.Matches(msg, keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, keys.Refresh):
			m.controller.ForceRefresh()
			m.notice = "refresh requested"
		case key.Matches(msg, keys.Restart):
			m.notice = m.restartSelected()
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}

	case tickMsg:
		m.snapshot = m.controller.Snapshot()
		m.clampCursor()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
	}

	return m, nil
}

// moveCursor shifts the process selection on the Processes tab.
func (m *Model) moveCursor(delta int) {
	if m.activeTab != TabProcesses {
		return
	}
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	max := 0
	if m.snapshot != nil {
		max = len(m.snapshot.Ranking.Entries) - 1
	}
	if m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// restartSelected queues a manual restart for the selected ranking entry
// and returns the footer notice describing what happened.
func (m *Model) restartSelected() string {
	if m.activeTab != TabProcesses || m.snapshot == nil {
		return ""
	}
	entries := m.snapshot.Ranking.Entries
	if m.cursor >= len(entries) {
		return ""
	}
	entry := entries[m.cursor]
	if entry.Unit == "" {
		return fmt.Sprintf("%s is not service-backed", entry.Label)
	}
	if m.snapshot.ReadOnly {
		return "read-only mode, restarts disabled"
	}
	if !m.controller.RequestRestart(entry.Unit) {
		return "restart queue full, try again"
	}
	return fmt.Sprintf("restart of %s requested", entry.Unit)
}

// View implements tea.Model. It renders the header, active tab content, and footer.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.renderTabContent()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// renderHeader renders the tab bar with the active tab highlighted plus
// the current state badge.
func (m Model) renderHeader() string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		name := tabNames[i]
		if i == m.activeTab {
			tabs = append(tabs, styleActiveTab.Render(name))
		} else {
			tabs = append(tabs, styleInactiveTab.Render(name))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.snapshot != nil {
		tabBar = lipgloss.JoinHorizontal(lipgloss.Top, tabBar, "  ", renderStateLine(m.snapshot))
	}
	return styleHeader.Width(m.width).Render(tabBar)
}

// renderTabContent delegates to the appropriate tab renderer based on the active tab.
func (m Model) renderTabContent() string {
	// Reserve space for header and footer (approximate).
	contentHeight := m.height - 6
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch m.activeTab {
	case TabOverview:
		content = renderOverviewContent(m.snapshot, m.width, contentHeight)
	case TabProcesses:
		content = renderProcessesContent(m.snapshot, m.cursor, m.width, contentHeight)
	case TabActivity:
		content = renderActivityContent(m.snapshot, m.events, m.width, contentHeight)
	default:
		content = ""
	}

	return styleContent.Width(m.width).Render(content)
}

// renderFooter renders the help text, the latest notice, and the last
// cycle timestamp.
func (m Model) renderFooter() string {
	help := "q: quit | tab: switch | 1-3: jump | r: refresh | ?: help"
	if m.showHelp {
		help = "q: quit | tab/shift+tab: tabs | 1-3: jump | j/k: select | s: restart selected | r: force refresh | ?: close help"
	}

	var extra string
	if m.notice != "" {
		extra = "  [" + m.notice + "]"
	}
	if m.snapshot != nil && !m.snapshot.TakenAt.IsZero() {
		extra += fmt.Sprintf("  Updated: %s", m.snapshot.TakenAt.Format("15:04:05"))
	}

	return styleFooter.Width(m.width).Render(help + extra)
}
