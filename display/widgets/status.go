package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusLevel represents the severity of a status indicator.
type StatusLevel int

const (
	// StatusOK indicates a healthy state.
	StatusOK StatusLevel = iota
	// StatusWarning indicates a degraded state.
	StatusWarning
	// StatusCritical indicates a critical state.
	StatusCritical
	// StatusUnknown indicates an indeterminate state.
	StatusUnknown
)

// statusIcons maps each status level to its display icon.
var statusIcons = map[StatusLevel]string{
	StatusOK:       "●",
	StatusWarning:  "●",
	StatusCritical: "●",
	StatusUnknown:  "○",
}

// statusColors maps each status level to its display color.
var statusColors = map[StatusLevel]lipgloss.Color{
	StatusOK:       lipgloss.Color("#22C55E"),
	StatusWarning:  lipgloss.Color("#EAB308"),
	StatusCritical: lipgloss.Color("#EF4444"),
	StatusUnknown:  lipgloss.Color("#6B7280"),
}

// RenderStatus renders a colored dot followed by the text.
func RenderStatus(level StatusLevel, text string) string {
	style := lipgloss.NewStyle().Foreground(statusColors[level])
	icon := style.Render(statusIcons[level])
	if text == "" {
		return icon
	}
	return icon + " " + text
}

// RenderStateBadge renders a bold uppercase state label in the state's
// color, like the NORMAL/ELEVATED/CRITICAL banner in the header.
func RenderStateBadge(state string) string {
	level := StatusLevelFromString(state)
	style := lipgloss.NewStyle().Bold(true).Foreground(statusColors[level])
	return style.Render(strings.ToUpper(state))
}

// StatusLevelFromString maps a monitor state or outcome string to a
// StatusLevel.
func StatusLevelFromString(s string) StatusLevel {
	switch strings.ToLower(s) {
	case "normal", "success", "ok":
		return StatusOK
	case "elevated", "no_op", "warning":
		return StatusWarning
	case "critical", "failed", "error":
		return StatusCritical
	default:
		return StatusUnknown
	}
}
