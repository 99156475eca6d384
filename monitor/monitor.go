// Package monitor contains the swapwatch sampling-and-decision engine:
// the adaptive sample cache, the swap ranking, the threshold state
// machine, and the remediation selector, tied together by a strictly
// serialized cycle driver. Everything that touches the operating system
// is reached through the probe.Prober and systemd.Controller interfaces,
// so the whole engine runs against fakes in tests.
package monitor

import (
	"time"

	"gitlab.com/tinyland/lab/swapwatch/probe"
)

// State is the position of the threshold hysteresis machine.
type State int

const (
	// StateNormal means swap usage is below the high threshold.
	StateNormal State = iota
	// StateElevated means the high threshold was breached and cache
	// reclamation is being attempted.
	StateElevated
	// StateCritical means reclamation did not help and service restarts
	// are being attempted.
	StateCritical
)

// String returns the human-readable name for a State.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateElevated:
		return "elevated"
	case StateCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Signal is the remediation request emitted by a threshold transition.
type Signal int

const (
	// SignalNone requests no remediation this cycle.
	SignalNone Signal = iota
	// SignalReclaim requests a kernel cache reclamation attempt.
	SignalReclaim
	// SignalRestart requests a service restart attempt.
	SignalRestart
)

// String returns the human-readable name for a Signal.
func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalReclaim:
		return "reclaim"
	case SignalRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// ActionKind identifies what a remediation action did.
type ActionKind string

const (
	// ActionCacheClear is a kernel cache reclamation.
	ActionCacheClear ActionKind = "cache_clear"
	// ActionServiceRestart is a systemd unit restart.
	ActionServiceRestart ActionKind = "service_restart"
	// ActionNone records a cycle where remediation was requested but no
	// eligible target existed.
	ActionNone ActionKind = "none"
)

// Outcome classifies how a remediation action ended.
type Outcome string

const (
	// OutcomeSuccess means the action ran and had a measurable effect.
	OutcomeSuccess Outcome = "success"
	// OutcomeNoOp means the action ran without error but freed nothing,
	// or no eligible target existed.
	OutcomeNoOp Outcome = "no_op"
	// OutcomeFailed means the action itself errored.
	OutcomeFailed Outcome = "failed"
)

// ActionRecord is the immutable, append-only record of one remediation
// attempt. SwapBefore and SwapAfter bracket the action so the threshold
// engine can judge its effect next cycle.
type ActionRecord struct {
	Time       time.Time  `json:"time"`
	Kind       ActionKind `json:"kind"`
	Target     string     `json:"target,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	SwapBefore float64    `json:"swap_before"`
	SwapAfter  float64    `json:"swap_after"`
	Detail     string     `json:"detail,omitempty"`
}

// ServiceSpec describes one managed service: which command name maps to
// which systemd unit, and whether child processes count toward it.
// Specs are read-only for the life of a monitoring session.
type ServiceSpec struct {
	// Match is the exact command name (as reported by the kernel) that
	// identifies the service's main process.
	Match string
	// Unit is the systemd unit restarted when this service is targeted.
	Unit string
	// IncludeChildren folds all descendant processes into the service's
	// swap total.
	IncludeChildren bool
}

// CacheStats reports process-lifetime hit/miss counters for the sample cache.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	// HitRate is hits / (hits + misses) as a percentage, 0 when no
	// lookups have happened yet.
	HitRate float64 `json:"hit_rate"`
}

// Snapshot is the immutable view of the engine handed to the presentation
// layer. The driver builds a fresh Snapshot every cycle and publishes it
// with a single atomic pointer swap; readers never see a partial cycle.
type Snapshot struct {
	TakenAt     time.Time
	SwapPercent float64
	MemPercent  float64

	State      State
	StateSince time.Time
	Breaches   int

	Ranking     Ranking
	Cache       CacheStats
	Interval    time.Duration
	SampleCount int

	// SwapHistory is the recent swap% trace, oldest first, for sparklines.
	SwapHistory []float64
	// RecentActions lists the latest remediation records, newest first.
	RecentActions []ActionRecord

	// ReadOnly is set when swapwatch lacks the privileges to remediate
	// and is observing only.
	ReadOnly bool
}

// samplesTotalSwap sums swap bytes across a sample set.
func samplesTotalSwap(samples []probe.ProcessSample) uint64 {
	var total uint64
	for _, s := range samples {
		total += s.SwapBytes
	}
	return total
}
