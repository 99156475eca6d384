package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/probe"
)

const (
	// historySize is how many swap readings the sparkline trace keeps.
	historySize = 60
	// actionLogSize caps the in-memory remediation record ring.
	actionLogSize = 50
)

// ServiceController is the systemd surface the driver needs. The real
// implementation records a cooldown entry internally on every successful
// restart.
type ServiceController interface {
	CooldownChecker
	Restart(ctx context.Context, unit string) error
}

// Driver owns the monitoring loop. All cycle work runs on the goroutine
// inside Run, strictly serialized: sample, rank, decide, act, publish.
// Other goroutines interact only through Snapshot, ForceRefresh and
// RequestRestart.
type Driver struct {
	prober   probe.Prober
	cache    *ProcessSampleCache
	timer    *AdaptiveTimer
	ranker   *SwapRanker
	engine   *ThresholdEngine
	selector *ActionSelector
	services ServiceController
	logger   *slog.Logger

	// readOnly disables remediation while keeping observation running.
	readOnly bool

	// CycleHook, when set, is called with each published snapshot on the
	// driver goroutine. Used for alert evaluation and history persistence.
	CycleHook func(*Snapshot)

	snapshot atomic.Pointer[Snapshot]

	// forceCh has capacity 1 so any number of refresh requests arriving
	// during a cycle coalesce into a single extra pass.
	forceCh   chan struct{}
	restartCh chan string

	lastAction  *ActionRecord
	lastSwapPct float64
	swapHistory []float64
	actions     []ActionRecord

	overruns uint64

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// DriverDeps bundles the collaborators a Driver is built from.
type DriverDeps struct {
	Prober   probe.Prober
	Cache    *ProcessSampleCache
	Timer    *AdaptiveTimer
	Ranker   *SwapRanker
	Engine   *ThresholdEngine
	Selector *ActionSelector
	Services ServiceController
	Logger   *slog.Logger
	ReadOnly bool

	// SeedHistory and SeedActions restore persisted state from a previous
	// run so the sparkline and action log survive restarts. SeedHistory is
	// oldest first, SeedActions newest first.
	SeedHistory []float64
	SeedActions []ActionRecord
}

// NewDriver wires up the monitoring loop. If Logger is nil, a no-op
// logger is used.
func NewDriver(deps DriverDeps) *Driver {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Driver{
		prober:    deps.Prober,
		cache:     deps.Cache,
		timer:     deps.Timer,
		ranker:    deps.Ranker,
		engine:    deps.Engine,
		selector:  deps.Selector,
		services:  deps.Services,
		logger:    logger,
		readOnly:  deps.ReadOnly,
		forceCh:   make(chan struct{}, 1),
		restartCh: make(chan string, 4),
		now:       time.Now,
		after:     time.After,
	}
	if n := len(deps.SeedHistory); n > 0 {
		if n > historySize {
			deps.SeedHistory = deps.SeedHistory[n-historySize:]
		}
		d.swapHistory = append([]float64(nil), deps.SeedHistory...)
	}
	if n := len(deps.SeedActions); n > 0 {
		if n > actionLogSize {
			deps.SeedActions = deps.SeedActions[:actionLogSize]
		}
		d.actions = append([]ActionRecord(nil), deps.SeedActions...)
	}
	return d
}

// Snapshot returns the most recently published cycle view, nil before the
// first cycle completes.
func (d *Driver) Snapshot() *Snapshot {
	return d.snapshot.Load()
}

// ForceRefresh requests an immediate full sampling pass. Requests made
// while a cycle is running coalesce; the call never blocks.
func (d *Driver) ForceRefresh() {
	select {
	case d.forceCh <- struct{}{}:
	default:
	}
}

// RequestRestart queues a manual restart of the given unit, bypassing the
// threshold machine but not the action log. Returns false when the queue
// is full.
func (d *Driver) RequestRestart(unit string) bool {
	select {
	case d.restartCh <- unit:
		return true
	default:
		return false
	}
}

// Run executes monitoring cycles until ctx is cancelled. Shutdown is
// honored only between cycles, so a snapshot is never half-published.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("monitor loop starting",
		"interval", d.timer.Current().String(),
		"read_only", d.readOnly,
	)

	d.runCycle(ctx, false)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("monitor loop stopping", "reason", ctx.Err())
			return nil
		case <-d.forceCh:
			d.runCycle(ctx, true)
		case unit := <-d.restartCh:
			d.manualRestart(ctx, unit)
			d.runCycle(ctx, true)
		case <-d.after(d.timer.Current()):
			d.runCycle(ctx, false)
		}
	}
}

// RunOnce executes a single cycle and returns its snapshot. Used by the
// one-shot command mode.
func (d *Driver) RunOnce(ctx context.Context) (*Snapshot, error) {
	d.runCycle(ctx, true)
	snap := d.snapshot.Load()
	if snap == nil {
		return nil, errors.New("monitor: cycle produced no snapshot")
	}
	return snap, nil
}

func (d *Driver) runCycle(ctx context.Context, forced bool) {
	start := d.now()

	swapPct, err := d.prober.SwapPercent()
	if err != nil {
		d.logger.Error("swap probe failed, keeping previous snapshot", "error", err)
		return
	}
	memPct, err := d.prober.MemoryPercent()
	if err != nil {
		d.logger.Error("memory probe failed, keeping previous snapshot", "error", err)
		return
	}

	stress := d.stressSignal(swapPct)
	samples, err := d.cache.Get(ctx, forced, stress)
	if err != nil {
		d.logger.Error("process sampling failed, keeping previous snapshot", "error", err)
		return
	}

	ranking := d.ranker.Rank(samples)
	dec := d.engine.Transition(swapPct, d.lastAction)
	plan := d.selector.Select(dec.Signal, ranking)

	if plan.Kind != ActionNone || dec.Signal != SignalNone {
		rec := d.execute(ctx, plan, swapPct)
		d.lastAction = &rec
		d.recordAction(rec)
	}

	d.lastSwapPct = swapPct
	d.swapHistory = append(d.swapHistory, swapPct)
	if len(d.swapHistory) > historySize {
		d.swapHistory = d.swapHistory[len(d.swapHistory)-historySize:]
	}

	snap := &Snapshot{
		TakenAt:       d.now(),
		SwapPercent:   swapPct,
		MemPercent:    memPct,
		State:         dec.State,
		StateSince:    d.engine.LastTransitionAt(),
		Breaches:      d.engine.Breaches(),
		Ranking:       ranking,
		Cache:         d.cache.Stats(),
		Interval:      d.timer.Current(),
		SampleCount:   len(samples),
		SwapHistory:   append([]float64(nil), d.swapHistory...),
		RecentActions: append([]ActionRecord(nil), d.actions...),
		ReadOnly:      d.readOnly,
	}
	d.snapshot.Store(snap)

	if d.CycleHook != nil {
		d.CycleHook(snap)
	}

	if elapsed := d.now().Sub(start); elapsed > d.timer.Current() {
		d.overruns++
		d.logger.Warn("cycle overran its interval",
			"elapsed", elapsed.String(),
			"interval", d.timer.Current().String(),
			"overruns", d.overruns,
		)
	}
}

// execute carries out a plan and returns its record. In read-only mode
// every plan degrades to a logged no-op.
func (d *Driver) execute(ctx context.Context, plan Action, swapBefore float64) ActionRecord {
	rec := ActionRecord{
		Time:       d.now(),
		Kind:       plan.Kind,
		SwapBefore: swapBefore,
		SwapAfter:  swapBefore,
	}

	if plan.Kind == ActionNone {
		rec.Outcome = OutcomeNoOp
		rec.Detail = plan.Reason
		if plan.Reason != "" {
			d.logger.Warn("remediation wanted but not possible", "reason", plan.Reason)
		}
		return rec
	}

	if d.readOnly {
		rec.Kind = ActionNone
		rec.Outcome = OutcomeNoOp
		rec.Detail = fmt.Sprintf("read-only mode, skipped %s", plan.Kind)
		d.logger.Info("read-only mode, skipping remediation", "kind", string(plan.Kind), "unit", plan.Unit)
		return rec
	}

	switch plan.Kind {
	case ActionCacheClear:
		freed, err := d.prober.ReclaimCache(ctx)
		switch {
		case err != nil:
			rec.Outcome = OutcomeFailed
			rec.Detail = err.Error()
			d.logger.Error("cache reclamation failed", "error", err)
		case freed == 0:
			rec.Outcome = OutcomeNoOp
			rec.Detail = "reclamation freed nothing"
			d.logger.Info("cache reclamation freed nothing")
		default:
			rec.Outcome = OutcomeSuccess
			rec.Detail = fmt.Sprintf("freed %d bytes", freed)
			d.logger.Info("cache reclamation complete", "freed_bytes", freed)
		}

	case ActionServiceRestart:
		rec.Target = plan.Unit
		if err := d.services.Restart(ctx, plan.Unit); err != nil {
			rec.Outcome = OutcomeFailed
			rec.Detail = err.Error()
			d.logger.Error("service restart failed", "unit", plan.Unit, "error", err)
		} else {
			rec.Outcome = OutcomeSuccess
			d.logger.Info("service restarted", "unit", plan.Unit, "label", plan.Label)
		}
	}

	if after, err := d.prober.SwapPercent(); err == nil {
		rec.SwapAfter = after
	}
	return rec
}

// manualRestart runs an operator-requested restart outside the threshold
// machine. Cooldown is not consulted; the operator decided.
func (d *Driver) manualRestart(ctx context.Context, unit string) {
	swapBefore := d.lastSwapPct
	if pct, err := d.prober.SwapPercent(); err == nil {
		swapBefore = pct
	}
	rec := ActionRecord{
		Time:       d.now(),
		Kind:       ActionServiceRestart,
		Target:     unit,
		SwapBefore: swapBefore,
		SwapAfter:  swapBefore,
		Detail:     "manual restart",
	}
	if err := d.services.Restart(ctx, unit); err != nil {
		rec.Outcome = OutcomeFailed
		rec.Detail = fmt.Sprintf("manual restart: %v", err)
		d.logger.Error("manual restart failed", "unit", unit, "error", err)
	} else {
		rec.Outcome = OutcomeSuccess
		d.logger.Info("manual restart complete", "unit", unit)
	}
	if after, err := d.prober.SwapPercent(); err == nil {
		rec.SwapAfter = after
	}
	d.lastAction = &rec
	d.recordAction(rec)
}

// recordAction prepends rec to the newest-first ring.
func (d *Driver) recordAction(rec ActionRecord) {
	d.actions = append([]ActionRecord{rec}, d.actions...)
	if len(d.actions) > actionLogSize {
		d.actions = d.actions[:actionLogSize]
	}
}

// Overruns returns how many cycles took longer than their interval.
func (d *Driver) Overruns() uint64 {
	return d.overruns
}

// stressSignal condenses this cycle's load evidence into [0, 1] for the
// adaptive timer. Any non-normal state pins sampling fast; otherwise a
// rising swap trend and slow scans push the signal up.
func (d *Driver) stressSignal(swapPct float64) float64 {
	var stress float64
	switch d.engine.State() {
	case StateElevated:
		stress = 0.6
	case StateCritical:
		stress = 1.0
	}

	if delta := swapPct - d.lastSwapPct; delta > 0 {
		// A 5 point climb within one cycle saturates the trend term.
		if trend := delta / 5.0; trend > stress {
			stress = trend
		}
	}

	if sd := d.cache.LastScanDuration(); sd > 500*time.Millisecond {
		stress += 0.25
	}

	if stress > 1 {
		stress = 1
	}
	return stress
}
