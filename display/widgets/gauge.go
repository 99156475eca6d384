// Package widgets provides reusable UI components for the swapwatch TUI.
package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GaugeConfig controls the appearance and behavior of a horizontal bar gauge.
type GaugeConfig struct {
	// Width is the total character width of the gauge bar.
	Width int
	// Percent is the value from 0 to 100.
	Percent float64
	// Label is optional text shown to the left of the bar.
	Label string
	// ShowPercent controls whether "XX.X%" is shown to the right.
	ShowPercent bool
	// ThresholdWarning is the % at which color changes to yellow. Usually
	// set to the monitor's low swap threshold.
	ThresholdWarning float64
	// ThresholdDanger is the % at which color changes to red. Usually set
	// to the monitor's high swap threshold.
	ThresholdDanger float64
}

// DefaultGaugeConfig returns a GaugeConfig matching the stock swap
// thresholds.
func DefaultGaugeConfig() GaugeConfig {
	return GaugeConfig{
		Width:            20,
		ShowPercent:      true,
		ThresholdWarning: 65,
		ThresholdDanger:  80,
	}
}

// gaugeColor returns the lipgloss color for the given percentage based on thresholds.
func gaugeColor(percent, warning, danger float64) lipgloss.Color {
	switch {
	case percent >= danger:
		return lipgloss.Color("#EF4444")
	case percent >= warning:
		return lipgloss.Color("#EAB308")
	default:
		return lipgloss.Color("#22C55E")
	}
}

// RenderGauge renders a horizontal bar gauge with optional label and percentage.
// Format: [Label] [████████░░░░] [XX.X%]
func RenderGauge(cfg GaugeConfig) string {
	percent := math.Max(0, math.Min(100, cfg.Percent))

	width := cfg.Width
	if width <= 0 {
		width = 20
	}

	filledCount := int(math.Round(percent / 100.0 * float64(width)))
	emptyCount := width - filledCount

	color := gaugeColor(percent, cfg.ThresholdWarning, cfg.ThresholdDanger)
	filled := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filledCount))
	bar := filled + strings.Repeat("░", emptyCount)

	var sb strings.Builder
	if cfg.Label != "" {
		sb.WriteString(cfg.Label)
		sb.WriteString(" ")
	}
	sb.WriteString(bar)
	if cfg.ShowPercent {
		sb.WriteString(fmt.Sprintf(" %5.1f%%", percent))
	}
	return sb.String()
}

// RenderMiniGauge renders a compact gauge bar with no label or percentage
// text, using the given swap thresholds for color.
func RenderMiniGauge(percent float64, width int, warning, danger float64) string {
	return RenderGauge(GaugeConfig{
		Width:            width,
		Percent:          percent,
		ShowPercent:      false,
		ThresholdWarning: warning,
		ThresholdDanger:  danger,
	})
}
