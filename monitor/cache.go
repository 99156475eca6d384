package monitor

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/probe"
)

// ProcessSampleCache memoizes the batched /proc sampling pass behind a
// TTL chosen by the AdaptiveTimer. The cache belongs to the cycle driver
// goroutine; readers elsewhere only ever see stats and samples copied
// into a Snapshot.
type ProcessSampleCache struct {
	prober probe.Prober
	timer  *AdaptiveTimer
	logger *slog.Logger
	now    func() time.Time

	samples    []probe.ProcessSample
	capturedAt time.Time
	ttl        time.Duration

	hits   uint64
	misses uint64

	// lastScanDuration feeds the stress signal: a slow scan indicates a
	// loaded system.
	lastScanDuration time.Duration
}

// NewProcessSampleCache creates a cache over the given prober and timer.
// If logger is nil, a no-op logger is used.
func NewProcessSampleCache(prober probe.Prober, timer *AdaptiveTimer, logger *slog.Logger) *ProcessSampleCache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ProcessSampleCache{
		prober: prober,
		timer:  timer,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the current sample set. Within the TTL and without force it
// serves the cached snapshot with no I/O. On a miss or a forced refresh
// it runs one batched probe pass and stores the result with a fresh TTL
// from the adaptive timer; a forced refresh additionally resets the
// timer's stress window.
//
// The stress argument is the caller's normalized load signal for this
// cycle, consumed by the adaptive timer on refresh.
func (c *ProcessSampleCache) Get(ctx context.Context, force bool, stress float64) ([]probe.ProcessSample, error) {
	age := c.now().Sub(c.capturedAt)
	if !force && c.samples != nil && age < c.ttl {
		c.hits++
		return c.samples, nil
	}

	if force {
		c.timer.Reset()
	}

	start := c.now()
	samples, err := c.prober.SampleAll(ctx)
	if err != nil {
		return nil, err
	}
	c.lastScanDuration = c.now().Sub(start)

	c.misses++
	c.samples = samples
	c.capturedAt = c.now()
	c.ttl = c.timer.NextInterval(stress)

	c.logger.Debug("sample cache refreshed",
		"processes", len(samples),
		"scan_duration", c.lastScanDuration.String(),
		"ttl", c.ttl.String(),
		"forced", force,
	)

	return samples, nil
}

// Stats returns the lifetime hit/miss counters. Counters reset only when
// the process restarts.
func (c *ProcessSampleCache) Stats() CacheStats {
	s := CacheStats{Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100.0
	}
	return s
}

// TTL returns the TTL assigned to the current entry.
func (c *ProcessSampleCache) TTL() time.Duration {
	return c.ttl
}

// LastScanDuration returns how long the most recent probe pass took.
func (c *ProcessSampleCache) LastScanDuration() time.Duration {
	return c.lastScanDuration
}
