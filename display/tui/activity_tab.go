package tui

import (
	"strings"

	"gitlab.com/tinyland/lab/swapwatch/eventlog"
	"gitlab.com/tinyland/lab/swapwatch/internal/format"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

// renderActivityContent renders the Activity tab: remediation records on
// top, the recent event stream below.
func renderActivityContent(snap *monitor.Snapshot, events *eventlog.Log, width, height int) string {
	var sections []string

	sections = append(sections, styleTitle.Render("Remediation Log"))
	if snap == nil || len(snap.RecentActions) == 0 {
		sections = append(sections, styleMuted.Render("No remediation actions yet."))
	} else {
		limit := len(snap.RecentActions)
		if limit > 10 {
			limit = 10
		}
		for _, rec := range snap.RecentActions[:limit] {
			sections = append(sections, describeAction(rec))
		}
	}

	if events != nil {
		sections = append(sections, "")
		sections = append(sections, styleTitle.Render("Events"))
		recent := events.Recent(eventRows(height))
		if len(recent) == 0 {
			sections = append(sections, styleMuted.Render("No events yet."))
		}
		for _, ev := range recent {
			sections = append(sections, renderEvent(ev, width))
		}
	}

	return strings.Join(sections, "\n")
}

// eventRows returns how many event lines fit under the remediation log.
func eventRows(height int) int {
	rows := height - 14
	if rows < 5 {
		rows = 5
	}
	if rows > 30 {
		rows = 30
	}
	return rows
}

// renderEvent renders one event line with a severity-colored marker.
func renderEvent(ev eventlog.Event, width int) string {
	marker := "·"
	switch ev.Severity {
	case eventlog.SeverityWarning:
		marker = "!"
	case eventlog.SeverityError:
		marker = "✗"
	}
	line := format.FormatClock(ev.Time) + " " + marker + " " + ev.Message
	return format.TruncateWithEllipsis(line, width-4)
}
