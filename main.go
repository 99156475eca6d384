// Command swapwatch is a resident swap-pressure monitor for Linux hosts.
// It samples per-process swap usage from /proc on an adaptive interval,
// walks a hysteresis state machine over system swap usage, and remediates
// pressure by dropping kernel caches or restarting the managed systemd
// units that consume the most swap. A bubbletea TUI shows live state; a
// headless mode runs the same loop for supervised deployments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"gitlab.com/tinyland/lab/swapwatch/config"
	"gitlab.com/tinyland/lab/swapwatch/display/color"
	"gitlab.com/tinyland/lab/swapwatch/display/tui"
	"gitlab.com/tinyland/lab/swapwatch/docs/manpage"
	"gitlab.com/tinyland/lab/swapwatch/internal/format"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default ~/.config/swapwatch/config.yaml)")
		headless    = flag.Bool("headless", false, "run the monitor loop without the TUI")
		once        = flag.Bool("once", false, "run a single monitoring cycle, print a summary, and exit")
		readOnly    = flag.Bool("read-only", false, "observe only, never drop caches or restart services")
		showMan     = flag.Bool("man", false, "print the man page in roff format and exit")
		showVersion = flag.Bool("version", false, "print version information and exit")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("swapwatch %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if *showMan {
		fmt.Print(manpage.Generate(version, commit, date))
		return
	}

	color.Apply()

	cfg, err := config.LoadConfig(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "swapwatch: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "swapwatch: invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := openLogger(cfg.Monitor.LogFile, *verbose, *once)
	defer closeLog()

	if !*readOnly && os.Geteuid() != 0 {
		logger.Warn("running without root privileges, remediation disabled")
		*readOnly = true
	}

	app, err := buildApplication(cfg, logger, *readOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swapwatch: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	switch {
	case *once:
		err = runOnce(ctx, app)
	case *headless:
		logger.Info("starting headless",
			"version", version,
			"read_only", *readOnly,
		)
		err = app.driver.Run(ctx)
	default:
		err = runTUI(ctx, cancel, app, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "swapwatch: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath expands the default config location when no explicit
// path was given.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "swapwatch", "config.yaml")
}

// openLogger opens the configured log file for slog output. In -once mode
// logs go to stderr so the summary on stdout stays clean. Falls back to
// stderr when the log file cannot be opened.
func openLogger(logFile string, verbose, once bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if once {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	logger.Warn("cannot open log file, logging to stderr", "path", logFile)
	return logger, func() {}
}

// runOnce executes a single monitoring cycle and prints a plain-text
// summary to stdout.
func runOnce(ctx context.Context, app *application) error {
	snap, err := app.driver.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Swap: %.1f%%   RAM: %.1f%%   State: %s\n",
		snap.SwapPercent, snap.MemPercent, snap.State)
	fmt.Printf("Processes sampled: %d   Next interval: %s\n",
		snap.SampleCount, format.FormatDuration(snap.Interval))

	if len(snap.Ranking.Entries) == 0 {
		fmt.Println("No swap consumers above the noise floor.")
		return nil
	}

	// Narrow terminals get a narrower name column instead of wrapped rows.
	labelWidth := 24
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && w < 80 {
		labelWidth = 16
	}

	fmt.Println("\nTop swap consumers:")
	for _, e := range snap.Ranking.Entries {
		unit := e.Unit
		if unit == "" {
			unit = "-"
		}
		fmt.Printf("  %-*s %-28s %10s  %d procs\n",
			labelWidth, format.TruncateWithEllipsis(e.Label, labelWidth), unit, format.Bytes(e.SwapBytes), len(e.PIDs))
	}
	return nil
}

// runTUI runs the monitor loop in the background and the bubbletea
// program in the foreground. Quitting the TUI stops the loop and vice
// versa.
func runTUI(ctx context.Context, cancel context.CancelFunc, app *application, cfg *config.Config) error {
	defer func() {
		if r := recover(); r != nil {
			// Restore the terminal if bubbletea died mid-render.
			fmt.Print("\x1b[?1049l\x1b[?25h")
			fmt.Fprintf(os.Stderr, "swapwatch: TUI panic: %v\n", r)
			os.Exit(1)
		}
	}()

	go func() {
		if err := app.driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "swapwatch: monitor loop: %v\n", err)
		}
	}()

	model := tui.NewModel(app.driver, app.events, cfg.UIUpdateInterval())
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err := program.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
