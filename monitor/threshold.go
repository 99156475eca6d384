package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ThresholdConfig holds the hysteresis thresholds, in percentage points
// of total swap.
type ThresholdConfig struct {
	// High is the swap% at which remediation starts (default 80).
	High float64
	// Low is the swap% at which the situation counts as resolved
	// (default 65). Must be strictly below High.
	Low float64
	// ReclaimMargin is the minimum swap% reduction a cache reclamation
	// must achieve to be judged effective (default 2 points). An
	// ineffective reclaim escalates ELEVATED to CRITICAL.
	ReclaimMargin float64
}

// DefaultThresholdConfig returns the stock thresholds.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		High:          80,
		Low:           65,
		ReclaimMargin: 2,
	}
}

// Decision is the output of one threshold transition.
type Decision struct {
	State  State
	Signal Signal
}

// ThresholdEngine is the hysteresis state machine over overall swap
// percentage. Transition is a pure function of (current state, swap%,
// last action outcome); the engine holds no timers. Cycle timing is the
// driver's job.
type ThresholdEngine struct {
	cfg    ThresholdConfig
	logger *slog.Logger
	now    func() time.Time

	state            State
	lastTransitionAt time.Time
	breaches         int
}

// NewThresholdEngine validates the thresholds and creates the engine in
// StateNormal. Construction fails when High is not strictly greater than
// Low or either value is outside (0, 100].
func NewThresholdEngine(cfg ThresholdConfig, logger *slog.Logger) (*ThresholdEngine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.High <= cfg.Low {
		return nil, fmt.Errorf("monitor: high threshold %.1f must exceed low threshold %.1f", cfg.High, cfg.Low)
	}
	if cfg.Low <= 0 || cfg.High > 100 {
		return nil, fmt.Errorf("monitor: thresholds must satisfy 0 < low < high <= 100, got low=%.1f high=%.1f", cfg.Low, cfg.High)
	}
	if cfg.ReclaimMargin < 0 {
		return nil, fmt.Errorf("monitor: reclaim margin must be non-negative, got %.1f", cfg.ReclaimMargin)
	}
	return &ThresholdEngine{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Transition feeds this cycle's overall swap percentage and the previous
// cycle's action record (nil when no action ran) into the state machine
// and returns the new state plus the remediation signal for this cycle.
func (e *ThresholdEngine) Transition(swapPct float64, last *ActionRecord) Decision {
	if swapPct >= e.cfg.High {
		e.breaches++
	} else {
		e.breaches = 0
	}

	prev := e.state
	signal := SignalNone

	switch e.state {
	case StateNormal:
		if swapPct >= e.cfg.High {
			e.state = StateElevated
			signal = SignalReclaim
		}

	case StateElevated:
		switch {
		case swapPct <= e.cfg.Low:
			e.state = StateNormal
		case swapPct >= e.cfg.High:
			if reclaimIneffective(last, e.cfg.ReclaimMargin) {
				// The previous reclaim did not move the needle by the
				// required margin; escalate. Requiring an actual prior
				// reclaim record keeps a single noisy sample from
				// declaring failure.
				e.state = StateCritical
				signal = SignalRestart
			} else {
				signal = SignalReclaim
			}
		}

	case StateCritical:
		if swapPct <= e.cfg.Low {
			e.state = StateNormal
		} else {
			// Keep restarting until the hysteresis gap is cleared.
			signal = SignalRestart
		}
	}

	if e.state != prev {
		e.lastTransitionAt = e.now()
		e.logger.Info("threshold transition",
			"from", prev.String(),
			"to", e.state.String(),
			"swap_percent", fmt.Sprintf("%.1f", swapPct),
		)
	}

	return Decision{State: e.state, Signal: signal}
}

// reclaimIneffective reports whether the last action was a cache
// reclamation that failed to reduce swap by at least margin points.
func reclaimIneffective(last *ActionRecord, margin float64) bool {
	if last == nil || last.Kind != ActionCacheClear {
		return false
	}
	if last.Outcome == OutcomeFailed {
		return true
	}
	return last.SwapBefore-last.SwapAfter < margin
}

// State returns the current position of the state machine.
func (e *ThresholdEngine) State() State {
	return e.state
}

// LastTransitionAt returns when the machine last changed state, zero
// before the first transition.
func (e *ThresholdEngine) LastTransitionAt() time.Time {
	return e.lastTransitionAt
}

// Breaches returns the consecutive count of cycles at or above the high
// threshold.
func (e *ThresholdEngine) Breaches() int {
	return e.breaches
}
