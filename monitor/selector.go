package monitor

import (
	"io"
	"log/slog"
	"time"
)

// Action is a concrete remediation plan for one cycle.
type Action struct {
	Kind ActionKind
	// Unit is the systemd unit to restart for ActionServiceRestart.
	Unit string
	// Label names the ranking entry behind a restart, for logs.
	Label string
	// Reason explains an ActionNone plan.
	Reason string
}

// CooldownChecker reports whether a unit was restarted too recently to be
// restarted again. The systemd controller implements it.
type CooldownChecker interface {
	InCooldown(unit string, now time.Time) bool
}

// ActionSelector turns a threshold signal plus the current ranking into a
// concrete plan. Restart targets are picked from the ranking in order, so
// the biggest swap consumer that maps to a unit and is out of cooldown is
// restarted first.
type ActionSelector struct {
	cooldown CooldownChecker
	logger   *slog.Logger
	now      func() time.Time
}

// NewActionSelector creates a selector consulting the given cooldown
// state. If logger is nil, a no-op logger is used.
func NewActionSelector(cooldown CooldownChecker, logger *slog.Logger) *ActionSelector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ActionSelector{
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// Select resolves a signal into a plan. SignalReclaim always maps to a
// cache clear. SignalRestart walks the ranking top-down and picks the
// first service-backed entry whose unit is out of cooldown; when every
// candidate is cooling down or no entry maps to a unit, the plan is
// ActionNone and the cycle records why.
func (s *ActionSelector) Select(signal Signal, ranking Ranking) Action {
	switch signal {
	case SignalReclaim:
		return Action{Kind: ActionCacheClear}

	case SignalRestart:
		now := s.now()
		sawUnit := false
		for _, e := range ranking.Entries {
			if e.Unit == "" {
				continue
			}
			sawUnit = true
			if s.cooldown.InCooldown(e.Unit, now) {
				s.logger.Debug("restart candidate in cooldown", "unit", e.Unit, "label", e.Label)
				continue
			}
			return Action{Kind: ActionServiceRestart, Unit: e.Unit, Label: e.Label}
		}
		reason := "no service-backed entries in ranking"
		if sawUnit {
			reason = "all restart candidates in cooldown"
		}
		return Action{Kind: ActionNone, Reason: reason}
	}

	return Action{Kind: ActionNone}
}
