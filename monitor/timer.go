package monitor

import (
	"time"
)

// AdaptiveTimerConfig bounds and tunes the refresh interval policy.
type AdaptiveTimerConfig struct {
	// Floor is the shortest allowed interval (default 5s).
	Floor time.Duration
	// Ceiling is the longest allowed interval (default 30s).
	Ceiling time.Duration
	// Window is how many recent stress readings are retained (default 5).
	Window int
	// StressThreshold is the normalized stress level above which the
	// interval starts shrinking toward the floor (default 0.25).
	StressThreshold float64
	// QuietStep is how much the interval grows per quiet reading
	// (default 2s).
	QuietStep time.Duration
}

// DefaultAdaptiveTimerConfig returns the stock interval policy.
func DefaultAdaptiveTimerConfig() AdaptiveTimerConfig {
	return AdaptiveTimerConfig{
		Floor:           5 * time.Second,
		Ceiling:         30 * time.Second,
		Window:          5,
		StressThreshold: 0.25,
		QuietStep:       2 * time.Second,
	}
}

// AdaptiveTimer computes how long the sample cache may serve stale data,
// and therefore how often the expensive /proc pass runs. Stress readings
// are normalized load signals in [0, 1]; the caller feeds one reading per
// cycle. Under sustained stress the interval walks down to the floor;
// while the system stays quiet it climbs back toward the ceiling one
// QuietStep at a time.
//
// The timer has no side effects beyond its retained reading window.
type AdaptiveTimer struct {
	cfg      AdaptiveTimerConfig
	readings []float64
	interval time.Duration
}

// NewAdaptiveTimer creates a timer starting at the ceiling interval.
// Zero-valued config fields fall back to defaults.
func NewAdaptiveTimer(cfg AdaptiveTimerConfig) *AdaptiveTimer {
	def := DefaultAdaptiveTimerConfig()
	if cfg.Floor <= 0 {
		cfg.Floor = def.Floor
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = def.Ceiling
	}
	if cfg.Ceiling < cfg.Floor {
		cfg.Ceiling = cfg.Floor
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.StressThreshold <= 0 {
		cfg.StressThreshold = def.StressThreshold
	}
	if cfg.QuietStep <= 0 {
		cfg.QuietStep = def.QuietStep
	}
	return &AdaptiveTimer{
		cfg:      cfg,
		interval: cfg.Ceiling,
	}
}

// NextInterval records one stress reading and returns the refresh
// interval to use, always within [Floor, Ceiling].
func (t *AdaptiveTimer) NextInterval(stress float64) time.Duration {
	if stress < 0 {
		stress = 0
	}
	if stress > 1 {
		stress = 1
	}

	t.readings = append(t.readings, stress)
	if len(t.readings) > t.cfg.Window {
		t.readings = t.readings[len(t.readings)-t.cfg.Window:]
	}

	avg := t.windowAverage()

	if avg > t.cfg.StressThreshold {
		// Map stress above the threshold onto the [Floor, Ceiling] span.
		// Taking the minimum with the current interval keeps successive
		// outputs non-increasing while stress keeps rising.
		norm := (avg - t.cfg.StressThreshold) / (1 - t.cfg.StressThreshold)
		span := float64(t.cfg.Ceiling - t.cfg.Floor)
		target := t.cfg.Ceiling - time.Duration(norm*span)
		if target < t.interval {
			t.interval = target
		}
	} else {
		t.interval += t.cfg.QuietStep
	}

	t.interval = t.clamp(t.interval)
	return t.interval
}

// Current returns the last computed interval without consuming a reading.
func (t *AdaptiveTimer) Current() time.Duration {
	return t.clamp(t.interval)
}

// Reset discards the stress window. Used when a forced refresh
// invalidates the recent history.
func (t *AdaptiveTimer) Reset() {
	t.readings = t.readings[:0]
}

func (t *AdaptiveTimer) windowAverage() float64 {
	if len(t.readings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range t.readings {
		sum += r
	}
	return sum / float64(len(t.readings))
}

func (t *AdaptiveTimer) clamp(d time.Duration) time.Duration {
	if d < t.cfg.Floor {
		return t.cfg.Floor
	}
	if d > t.cfg.Ceiling {
		return t.cfg.Ceiling
	}
	return d
}
