// Package manpage generates a roff-formatted man page for swapwatch.
//
// The man page is generated at runtime from compiled-in version
// information and the TUI key bindings, keeping documentation in sync
// with the code automatically.
//
// Usage:
//
//	swapwatch -man | man -l -
//	swapwatch -man > /usr/local/share/man/man1/swapwatch.1
package manpage

import (
	"fmt"
	"strings"
	"time"
)

// Generate produces a complete roff-formatted man(1) page for swapwatch.
// The version, commit, and date parameters are passed from the build-time
// linker variables so the man page always reflects the current build.
func Generate(version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeOptions(&b)
	writeKeybindings(&b)
	writeConfiguration(&b)
	writeFiles(&b)
	writeExamples(&b)
	writeEnvironment(&b)
	writeExitStatus(&b)
	writeSeeAlso(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH SWAPWATCH 1 \"%s\" \"swapwatch %s\" \"System Administration Utilities\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(".SH NAME\n")
	b.WriteString("swapwatch \\- resident swap pressure monitor with automatic remediation\n")
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(".SH SYNOPSIS\n")
	b.WriteString(".B swapwatch\n")
	b.WriteString("[\\fB\\-config\\fR \\fIpath\\fR]\n")
	b.WriteString("[\\fB\\-headless\\fR]\n")
	b.WriteString("[\\fB\\-once\\fR]\n")
	b.WriteString("[\\fB\\-read\\-only\\fR]\n")
	b.WriteString("[\\fB\\-verbose\\fR]\n")
	b.WriteString("[\\fB\\-man\\fR]\n")
	b.WriteString("[\\fB\\-version\\fR]\n")
}

func writeDescription(b *strings.Builder) {
	b.WriteString(".SH DESCRIPTION\n")
	b.WriteString(".B swapwatch\n")
	b.WriteString("samples per\\-process swap usage from\n")
	b.WriteString(".I /proc\n")
	b.WriteString("on an adaptive interval and tracks system swap usage through a\n")
	b.WriteString("hysteresis state machine. When swap crosses the high threshold it\n")
	b.WriteString("first drops kernel caches; if that does not bring usage down it\n")
	b.WriteString("restarts the managed systemd unit that consumes the most swap,\n")
	b.WriteString("subject to a per\\-unit cooldown.\n")
	b.WriteString(".PP\n")
	b.WriteString("By default swapwatch runs a full\\-screen terminal interface showing\n")
	b.WriteString("live gauges, the swap consumer ranking, and the remediation log.\n")
	b.WriteString("Remediation requires root; without it swapwatch runs in read\\-only\n")
	b.WriteString("mode and only observes.\n")
}

func writeOptions(b *strings.Builder) {
	b.WriteString(".SH OPTIONS\n")
	options := []struct {
		flag, desc string
	}{
		{"\\-config \\fIpath\\fR", "Path to the YAML configuration file. Defaults to \\fI~/.config/swapwatch/config.yaml\\fR. A missing file falls back to built\\-in defaults."},
		{"\\-headless", "Run the monitor loop without the terminal interface. Intended for systemd\\-supervised deployments."},
		{"\\-once", "Run a single monitoring cycle, print a plain\\-text summary to standard output, and exit."},
		{"\\-read\\-only", "Observe only. Never drop caches or restart services, regardless of privileges."},
		{"\\-verbose", "Enable debug\\-level logging."},
		{"\\-man", "Print this man page in roff format and exit."},
		{"\\-version", "Print version information and exit."},
	}
	for _, o := range options {
		b.WriteString(".TP\n")
		fmt.Fprintf(b, ".B %s\n", o.flag)
		b.WriteString(o.desc + "\n")
	}
}

func writeKeybindings(b *strings.Builder) {
	b.WriteString(".SH KEY BINDINGS\n")
	b.WriteString("The terminal interface responds to the following keys:\n")
	bindings := []struct {
		key, desc string
	}{
		{"tab, right / shift+tab, left", "Cycle through the Overview, Processes, and Activity tabs."},
		{"1, 2, 3", "Jump directly to a tab."},
		{"j, k / down, up", "Move the selection in the process table."},
		{"r", "Force an immediate sampling pass, bypassing the cache."},
		{"s, enter", "Request a restart of the selected service\\-backed process group."},
		{"?", "Toggle the help line."},
		{"q, ctrl+c", "Quit."},
	}
	for _, kb := range bindings {
		b.WriteString(".TP\n")
		fmt.Fprintf(b, ".B %s\n", kb.key)
		b.WriteString(kb.desc + "\n")
	}
}

func writeConfiguration(b *strings.Builder) {
	b.WriteString(".SH CONFIGURATION\n")
	b.WriteString("Configuration is YAML. All sections are optional; omitted values\n")
	b.WriteString("take the built\\-in defaults shown here.\n")
	b.WriteString(".PP\n")
	b.WriteString(".nf\n")
	b.WriteString("thresholds:\n")
	b.WriteString("  swap_high: 80        # remediation starts above this swap %\n")
	b.WriteString("  swap_low: 65         # pressure counts as resolved below this\n")
	b.WriteString("  reclaim_margin: 2    # minimum % drop for a reclaim to count\n")
	b.WriteString("\n")
	b.WriteString("adaptive:\n")
	b.WriteString("  floor_interval: 5s   # fastest sampling under pressure\n")
	b.WriteString("  ceiling_interval: 30s\n")
	b.WriteString("  window: 5\n")
	b.WriteString("\n")
	b.WriteString("services:\n")
	b.WriteString("  - match: postgres\n")
	b.WriteString("    unit: postgresql.service\n")
	b.WriteString("    include_children: true\n")
	b.WriteString(".fi\n")
}

func writeFiles(b *strings.Builder) {
	b.WriteString(".SH FILES\n")
	files := []struct {
		path, desc string
	}{
		{"~/.config/swapwatch/config.yaml", "Default configuration file location."},
		{"~/.local/log/swapwatch.log", "Default daemon log file."},
		{"~/.local/state/swapwatch/", "Persisted swap history and remediation records."},
		{"/proc/sys/vm/drop_caches", "Kernel interface written during cache reclamation."},
	}
	for _, f := range files {
		b.WriteString(".TP\n")
		fmt.Fprintf(b, ".I %s\n", f.path)
		b.WriteString(f.desc + "\n")
	}
}

func writeExamples(b *strings.Builder) {
	b.WriteString(".SH EXAMPLES\n")
	examples := []struct {
		desc, cmd string
	}{
		{"Run the interactive monitor:", "sudo swapwatch"},
		{"Run one cycle and print the ranking:", "swapwatch \\-once"},
		{"Run under systemd without a terminal:", "swapwatch \\-headless \\-config /etc/swapwatch.yaml"},
		{"Install the man page:", "swapwatch \\-man > /usr/local/share/man/man1/swapwatch.1"},
	}
	for _, e := range examples {
		b.WriteString(".PP\n")
		b.WriteString(e.desc + "\n")
		b.WriteString(".PP\n")
		b.WriteString(".nf\n")
		b.WriteString("    " + e.cmd + "\n")
		b.WriteString(".fi\n")
	}
}

func writeEnvironment(b *strings.Builder) {
	b.WriteString(".SH ENVIRONMENT\n")
	b.WriteString(".TP\n")
	b.WriteString(".B NO_COLOR\n")
	b.WriteString("When set, disables all color output.\n")
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(".SH EXIT STATUS\n")
	b.WriteString(".TP\n")
	b.WriteString(".B 0\n")
	b.WriteString("Clean shutdown.\n")
	b.WriteString(".TP\n")
	b.WriteString(".B 1\n")
	b.WriteString("Invalid configuration or a fatal runtime error.\n")
}

func writeSeeAlso(b *strings.Builder) {
	b.WriteString(".SH SEE ALSO\n")
	b.WriteString(".BR systemctl (1),\n")
	b.WriteString(".BR proc (5),\n")
	b.WriteString(".BR free (1)\n")
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	b.WriteString(".SH VERSION\n")
	fmt.Fprintf(b, "swapwatch %s (commit %s, built %s)\n", version, commit, date)
}
