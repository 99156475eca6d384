package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/alert"
	"gitlab.com/tinyland/lab/swapwatch/config"
	"gitlab.com/tinyland/lab/swapwatch/eventlog"
	"gitlab.com/tinyland/lab/swapwatch/history"
	"gitlab.com/tinyland/lab/swapwatch/monitor"
	"gitlab.com/tinyland/lab/swapwatch/probe"
	"gitlab.com/tinyland/lab/swapwatch/systemd"
)

// notifyTimeout bounds a single alert delivery pass.
const notifyTimeout = 30 * time.Second

// application bundles the long-lived components main wires together.
type application struct {
	driver   *monitor.Driver
	events   *eventlog.Log
	store    *history.Store
	notifier *alert.Notifier
}

// buildApplication assembles the monitoring engine from configuration:
// prober, adaptive timer, sample cache, ranker, threshold engine, systemd
// controller, and the cycle driver, plus the event log, history store, and
// alert notifier hanging off the cycle hook.
func buildApplication(cfg *config.Config, logger *slog.Logger, readOnly bool) (*application, error) {
	prober := probe.NewProcProber(logger)
	timer := monitor.NewAdaptiveTimer(monitor.AdaptiveTimerConfig{
		Floor:   cfg.FloorInterval(),
		Ceiling: cfg.CeilingInterval(),
		Window:  cfg.Adaptive.Window,
	})
	cache := monitor.NewProcessSampleCache(prober, timer, logger)
	ranker := monitor.NewSwapRanker(serviceSpecs(cfg.Services), 0)

	engine, err := monitor.NewThresholdEngine(monitor.ThresholdConfig{
		High:          cfg.Thresholds.SwapHigh,
		Low:           cfg.Thresholds.SwapLow,
		ReclaimMargin: cfg.Thresholds.ReclaimMargin,
	}, logger)
	if err != nil {
		return nil, err
	}

	controller := systemd.NewSystemctlController(cfg.RestartCooldown(), logger)
	selector := monitor.NewActionSelector(controller, logger)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.Monitor.StateDir, cfg.History.MaxEntries, logger)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
	}
	seedHistory, seedActions := loadSeeds(store, logger)

	driver := monitor.NewDriver(monitor.DriverDeps{
		Prober:      prober,
		Cache:       cache,
		Timer:       timer,
		Ranker:      ranker,
		Engine:      engine,
		Selector:    selector,
		Services:    controller,
		Logger:      logger,
		ReadOnly:    readOnly,
		SeedHistory: seedHistory,
		SeedActions: seedActions,
	})

	events := eventlog.New(logger)

	notifier := buildNotifier(cfg, logger)
	driver.CycleHook = newCycleHook(store, notifier, events, logger)

	return &application{
		driver:   driver,
		events:   events,
		store:    store,
		notifier: notifier,
	}, nil
}

// loadSeeds restores the persisted swap trace and action log so the TUI
// picks up where the previous run left off. A nil store or a read error
// just means starting empty.
func loadSeeds(store *history.Store, logger *slog.Logger) ([]float64, []monitor.ActionRecord) {
	if store == nil {
		return nil, nil
	}
	var swap []float64
	points, err := store.Points()
	if err != nil {
		logger.Warn("history load failed", "error", err)
	}
	for _, p := range points {
		swap = append(swap, p.SwapPercent)
	}
	actions, err := store.Actions()
	if err != nil {
		logger.Warn("action history load failed", "error", err)
	}
	return swap, actions
}

// serviceSpecs converts config service entries into ranker specs.
func serviceSpecs(entries []config.ServiceEntry) []monitor.ServiceSpec {
	specs := make([]monitor.ServiceSpec, 0, len(entries))
	for _, e := range entries {
		specs = append(specs, monitor.ServiceSpec{
			Match:           e.Match,
			Unit:            e.Unit,
			IncludeChildren: e.IncludeChildren,
		})
	}
	return specs
}

// buildNotifier creates the alert notifier with whichever sinks the config
// enables. With no sinks enabled Notify is a no-op.
func buildNotifier(cfg *config.Config, logger *slog.Logger) *alert.Notifier {
	var sinks []alert.Sink
	if cfg.Alerts.Webhook.Enabled {
		sinks = append(sinks, alert.NewWebhookSink(cfg.Alerts.Webhook.URL))
	}
	if cfg.Alerts.Email.Enabled {
		e := cfg.Alerts.Email
		sinks = append(sinks, alert.NewEmailSink(e.SMTPHost, e.SMTPPort, e.From, e.To))
	}
	return alert.NewNotifier(sinks, cfg.AlertCooldown(), logger)
}

// newCycleHook returns the per-cycle callback that feeds the event log,
// fires alerts on state changes and failed actions, and persists history.
// It runs on the driver goroutine, so alert delivery happens on a separate
// goroutine to keep sampling on schedule.
func newCycleHook(store *history.Store, notifier *alert.Notifier, events *eventlog.Log, logger *slog.Logger) func(*monitor.Snapshot) {
	hostname, _ := os.Hostname()
	prevState := monitor.StateNormal
	var lastAction time.Time

	notify := func(p alert.Payload) {
		p.Hostname = hostname
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			notifier.Notify(ctx, p)
		}()
	}

	return func(snap *monitor.Snapshot) {
		if snap.State != prevState {
			msg := fmt.Sprintf("state changed %s to %s at %.1f%% swap",
				prevState, snap.State, snap.SwapPercent)
			switch snap.State {
			case monitor.StateCritical:
				events.Error(msg)
				notify(alert.Payload{
					Condition:   "swap_critical",
					State:       snap.State.String(),
					SwapPercent: snap.SwapPercent,
					Message:     fmt.Sprintf("swap usage critical at %.1f%%, reclamation ineffective", snap.SwapPercent),
					Time:        snap.TakenAt,
				})
			case monitor.StateElevated:
				events.Warn(msg)
			default:
				events.Info(msg)
				notify(alert.Payload{
					Condition:   "swap_recovered",
					State:       snap.State.String(),
					SwapPercent: snap.SwapPercent,
					Message:     fmt.Sprintf("swap usage recovered to %.1f%%", snap.SwapPercent),
					Time:        snap.TakenAt,
				})
			}
			prevState = snap.State
		}

		if len(snap.RecentActions) > 0 {
			rec := snap.RecentActions[0]
			if rec.Time.After(lastAction) {
				lastAction = rec.Time
				desc := string(rec.Kind)
				if rec.Target != "" {
					desc += " " + rec.Target
				}
				line := fmt.Sprintf("%s: %s, swap %.1f%% to %.1f%%",
					desc, rec.Outcome, rec.SwapBefore, rec.SwapAfter)
				if rec.Outcome == monitor.OutcomeFailed {
					events.Error(line)
					notify(alert.Payload{
						Condition:   "action_failed",
						State:       snap.State.String(),
						SwapPercent: snap.SwapPercent,
						Message:     line,
						Time:        rec.Time,
					})
				} else {
					events.Info(line)
				}
			}
		}

		if store != nil {
			if err := store.AppendPoint(history.Point{
				Time:        snap.TakenAt,
				SwapPercent: snap.SwapPercent,
				MemPercent:  snap.MemPercent,
				State:       snap.State.String(),
			}); err != nil {
				logger.Warn("history append failed", "error", err)
			}
			if len(snap.RecentActions) > 0 {
				if err := store.SaveActions(snap.RecentActions); err != nil {
					logger.Warn("action history save failed", "error", err)
				}
			}
		}
	}
}
