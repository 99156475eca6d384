package tui

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/swapwatch/display/widgets"
	"gitlab.com/tinyland/lab/swapwatch/internal/format"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

// renderProcessesContent renders the Processes tab: the swap ranking as a
// selectable table.
func renderProcessesContent(snap *monitor.Snapshot, cursor, width, height int) string {
	if snap == nil {
		return "Waiting for the first monitoring cycle..."
	}
	entries := snap.Ranking.Entries
	if len(entries) == 0 {
		return "No swap consumers above the noise floor."
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		unit := e.Unit
		if unit == "" {
			unit = "-"
		}
		rows = append(rows, []string{
			format.TruncateWithEllipsis(e.Label, 24),
			unit,
			format.Bytes(e.SwapBytes),
			fmt.Sprintf("%d", len(e.PIDs)),
			formatPIDs(e.PIDs, 5),
		})
	}

	table := widgets.RenderTable(widgets.TableConfig{
		Columns: []widgets.Column{
			{Title: "NAME"},
			{Title: "UNIT"},
			{Title: "SWAP", Align: widgets.AlignRight},
			{Title: "PROCS", Align: widgets.AlignRight},
			{Title: "PIDS"},
		},
		Rows:          rows,
		MaxWidth:      width - 4,
		HeaderStyle:   styleTitle,
		SelectedRow:   cursor,
		SelectedStyle: styleSelected,
	})

	hint := styleMuted.Render("j/k: select   s: restart selected unit")
	return strings.Join([]string{table, "", hint}, "\n")
}

// formatPIDs renders up to max PIDs, eliding the rest with a count.
func formatPIDs(pids []int, max int) string {
	var parts []string
	for i, pid := range pids {
		if i == max {
			parts = append(parts, fmt.Sprintf("+%d more", len(pids)-max))
			break
		}
		parts = append(parts, fmt.Sprintf("%d", pid))
	}
	return strings.Join(parts, ",")
}
