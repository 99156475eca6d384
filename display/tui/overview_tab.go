package tui

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/swapwatch/display/widgets"
	"gitlab.com/tinyland/lab/swapwatch/internal/format"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

// renderStateLine renders the compact state badge shown in the header.
func renderStateLine(snap *monitor.Snapshot) string {
	badge := widgets.RenderStateBadge(snap.State.String())
	if snap.ReadOnly {
		badge += styleMuted.Render(" (read-only)")
	}
	return badge
}

// renderOverviewContent renders the Overview tab: gauges, the swap trend
// sparkline, and the sampling statistics.
func renderOverviewContent(snap *monitor.Snapshot, width, height int) string {
	if snap == nil {
		return "Waiting for the first monitoring cycle..."
	}

	gaugeWidth := width / 3
	if gaugeWidth < 10 {
		gaugeWidth = 10
	}
	if gaugeWidth > 40 {
		gaugeWidth = 40
	}

	var sections []string

	sections = append(sections, styleTitle.Render("Memory Pressure"))
	sections = append(sections, "")
	sections = append(sections, widgets.RenderGauge(widgets.GaugeConfig{
		Width:            gaugeWidth,
		Percent:          snap.SwapPercent,
		Label:            "Swap",
		ShowPercent:      true,
		ThresholdWarning: 65,
		ThresholdDanger:  80,
	}))
	sections = append(sections, widgets.RenderGauge(widgets.GaugeConfig{
		Width:            gaugeWidth,
		Percent:          snap.MemPercent,
		Label:            "RAM ",
		ShowPercent:      true,
		ThresholdWarning: 80,
		ThresholdDanger:  95,
	}))

	if len(snap.SwapHistory) > 1 {
		sparkWidth := width - 12
		if sparkWidth > 60 {
			sparkWidth = 60
		}
		if sparkWidth < 10 {
			sparkWidth = 10
		}
		sections = append(sections, "")
		sections = append(sections, styleTitle.Render("Swap Trend"))
		sections = append(sections, widgets.RenderSwapTrace(snap.SwapHistory, sparkWidth, colorPrimary))
	}

	sections = append(sections, "")
	sections = append(sections, styleTitle.Render("Sampling"))
	sections = append(sections, fmt.Sprintf("Interval: %s   Processes: %d   Cache: %d hits / %d misses (%.0f%%)",
		format.FormatDuration(snap.Interval),
		snap.SampleCount,
		snap.Cache.Hits,
		snap.Cache.Misses,
		snap.Cache.HitRate,
	))

	stateLine := fmt.Sprintf("State: %s", widgets.RenderStateBadge(snap.State.String()))
	if !snap.StateSince.IsZero() {
		stateLine += styleMuted.Render(fmt.Sprintf("  since %s", format.FormatTimeSince(snap.StateSince)))
	}
	if snap.Breaches > 0 {
		stateLine += fmt.Sprintf("   Breaches: %d", snap.Breaches)
	}
	sections = append(sections, stateLine)

	if last := latestAction(snap); last != nil {
		sections = append(sections, "")
		sections = append(sections, styleTitle.Render("Last Action"))
		sections = append(sections, describeAction(*last))
	}

	return strings.Join(sections, "\n")
}

// latestAction returns the most recent remediation record, nil when none
// has happened yet.
func latestAction(snap *monitor.Snapshot) *monitor.ActionRecord {
	if len(snap.RecentActions) == 0 {
		return nil
	}
	return &snap.RecentActions[0]
}

// describeAction renders one remediation record as a single line.
func describeAction(rec monitor.ActionRecord) string {
	outcome := widgets.RenderStatus(widgets.StatusLevelFromString(string(rec.Outcome)), string(rec.Outcome))

	desc := string(rec.Kind)
	if rec.Target != "" {
		desc += " " + rec.Target
	}

	line := fmt.Sprintf("%s  %s  %s  swap %.1f%% → %.1f%%",
		format.FormatClock(rec.Time), desc, outcome, rec.SwapBefore, rec.SwapAfter)
	if rec.Detail != "" {
		line += styleMuted.Render("  (" + rec.Detail + ")")
	}
	return line
}
