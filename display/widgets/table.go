package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alignment controls text alignment within a table column.
type Alignment int

const (
	// AlignLeft aligns text to the left (default).
	AlignLeft Alignment = iota
	// AlignRight aligns text to the right.
	AlignRight
)

// Column defines a single table column.
type Column struct {
	// Title is the header text.
	Title string
	// Width is the fixed character width. If 0, auto-calculated from content.
	Width int
	// Align controls text alignment within the column.
	Align Alignment
}

// TableConfig holds the configuration for rendering a table.
type TableConfig struct {
	// Columns defines the table structure.
	Columns []Column
	// Rows is the table data. Each row is a slice of cell strings.
	Rows [][]string
	// MaxWidth is the maximum total table width. Columns are truncated if needed.
	MaxWidth int
	// HeaderStyle is the lipgloss style for the header row.
	HeaderStyle lipgloss.Style
	// SelectedRow highlights one data row, -1 for none.
	SelectedRow int
	// SelectedStyle is the lipgloss style for the highlighted row.
	SelectedStyle lipgloss.Style
}

// RenderTable renders a formatted text table with a header, a rule under
// it, and an optional highlighted row for cursor-driven views.
func RenderTable(cfg TableConfig) string {
	if len(cfg.Columns) == 0 {
		return ""
	}

	const separator = "  "
	widths := calculateColumnWidths(cfg.Columns, cfg.Rows, cfg.MaxWidth, len(separator))

	var lines []string

	headerCells := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		headerCells[i] = padOrTruncate(col.Title, widths[i], AlignLeft)
	}
	lines = append(lines, cfg.HeaderStyle.Render(strings.Join(headerCells, separator)))

	sepParts := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		sepParts[i] = strings.Repeat("─", widths[i])
	}
	lines = append(lines, strings.Join(sepParts, separator))

	for rowIdx, row := range cfg.Rows {
		cells := make([]string, len(cfg.Columns))
		for i := range cfg.Columns {
			cellText := ""
			if i < len(row) {
				cellText = row[i]
			}
			cells[i] = padOrTruncate(cellText, widths[i], cfg.Columns[i].Align)
		}
		line := strings.Join(cells, separator)
		if rowIdx == cfg.SelectedRow {
			line = cfg.SelectedStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// padOrTruncate pads or truncates a string to the given width with the
// specified alignment, marking truncation with an ellipsis.
func padOrTruncate(s string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) > width {
		if width <= 1 {
			return string(runes[:width])
		}
		return string(runes[:width-1]) + "…"
	}

	padding := strings.Repeat(" ", width-len(runes))
	if align == AlignRight {
		return padding + s
	}
	return s + padding
}

// calculateColumnWidths determines the width for each column. A column
// with Width > 0 keeps it; otherwise the width is the maximum of the
// header and every cell. If maxWidth > 0, widths shrink proportionally
// to fit.
func calculateColumnWidths(cols []Column, rows [][]string, maxWidth, sepWidth int) []int {
	widths := make([]int, len(cols))

	for i, col := range cols {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		w := len([]rune(col.Title))
		for _, row := range rows {
			if i < len(row) {
				if cellLen := len([]rune(row[i])); cellLen > w {
					w = cellLen
				}
			}
		}
		if w == 0 {
			w = 1
		}
		widths[i] = w
	}

	if maxWidth > 0 {
		totalSepWidth := (len(cols) - 1) * sepWidth
		totalColWidth := 0
		for _, w := range widths {
			totalColWidth += w
		}
		if totalColWidth+totalSepWidth > maxWidth {
			available := maxWidth - totalSepWidth
			if available < len(cols) {
				available = len(cols)
			}
			for i, w := range widths {
				widths[i] = w * available / totalColWidth
				if widths[i] < 1 {
					widths[i] = 1
				}
			}
		}
	}

	return widths
}
