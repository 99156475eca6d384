package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks contains 8 unicode block characters for sparkline rendering,
// ordered from lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineConfig controls the appearance and behavior of a sparkline chart.
type SparklineConfig struct {
	// Data points to render (most recent last).
	Data []float64
	// Width is the number of characters to render. If 0, uses len(Data).
	Width int
	// Min is the minimum value for scaling. If Min == Max, auto-scale.
	// Swap traces use a fixed 0-100 scale so the chart height is
	// comparable across refreshes.
	Min float64
	// Max is the maximum value for scaling.
	Max float64
	// Color is the lipgloss color for the sparkline characters.
	Color lipgloss.Color
}

// RenderSparkline renders a unicode sparkline chart from the given configuration.
func RenderSparkline(cfg SparklineConfig) string {
	if len(cfg.Data) == 0 {
		return ""
	}

	data := cfg.Data

	width := cfg.Width
	if width <= 0 {
		width = len(data)
	}

	// Keep the most recent points when the trace is wider than the chart.
	if width < len(data) {
		data = data[len(data)-width:]
	}

	minVal := cfg.Min
	maxVal := cfg.Max
	if minVal == maxVal {
		minVal, maxVal = data[0], data[0]
		for _, v := range data {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}

	var runes []rune
	allEqual := minVal == maxVal
	for _, v := range data {
		if allEqual {
			runes = append(runes, sparkBlocks[len(sparkBlocks)/2])
			continue
		}
		normalized := (v - minVal) / (maxVal - minVal)
		normalized = math.Max(0, math.Min(1, normalized))
		idx := int(normalized * float64(len(sparkBlocks)-1))
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		runes = append(runes, sparkBlocks[idx])
	}

	// Left-pad so a short trace grows in from the right edge.
	sparkStr := string(runes)
	if width > len(data) {
		sparkStr = strings.Repeat(" ", width-len(data)) + sparkStr
	}

	if cfg.Color != "" {
		sparkStr = lipgloss.NewStyle().Foreground(cfg.Color).Render(sparkStr)
	}
	return sparkStr
}

// RenderSwapTrace renders a swap% sparkline on a fixed 0-100 scale with
// the latest reading appended as a number: ▁▂▃▅▆ 72.4%
func RenderSwapTrace(data []float64, width int, color lipgloss.Color) string {
	if len(data) == 0 {
		return ""
	}
	spark := RenderSparkline(SparklineConfig{
		Data:  data,
		Width: width,
		Min:   0,
		Max:   100,
		Color: color,
	})
	return fmt.Sprintf("%s %.1f%%", spark, data[len(data)-1])
}
