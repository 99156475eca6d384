package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/probe"
)

func newTestCache(prober *fakeProber) (*ProcessSampleCache, *time.Time) {
	timer := NewAdaptiveTimer(DefaultAdaptiveTimerConfig())
	cache := NewProcessSampleCache(prober, timer, testLogger())
	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	return cache, &clock
}

func TestCacheServesHitsWithinTTL(t *testing.T) {
	prober := &fakeProber{samples: cacheTestSamples()}
	cache, clock := newTestCache(prober)
	ctx := context.Background()

	if _, err := cache.Get(ctx, false, 0); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if prober.sampleCalls != 1 {
		t.Fatalf("first Get should probe once, got %d calls", prober.sampleCalls)
	}

	*clock = clock.Add(2 * time.Second)
	if _, err := cache.Get(ctx, false, 0); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if prober.sampleCalls != 1 {
		t.Fatalf("Get within TTL should not probe, got %d calls", prober.sampleCalls)
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("Stats() = %+v, want 1 hit 1 miss", stats)
	}
	if stats.HitRate != 50.0 {
		t.Fatalf("HitRate = %.1f, want 50.0", stats.HitRate)
	}
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	prober := &fakeProber{samples: cacheTestSamples()}
	cache, clock := newTestCache(prober)
	ctx := context.Background()

	if _, err := cache.Get(ctx, false, 0); err != nil {
		t.Fatalf("Get: %v", err)
	}

	*clock = clock.Add(cache.TTL() + time.Second)
	if _, err := cache.Get(ctx, false, 0); err != nil {
		t.Fatalf("Get after TTL: %v", err)
	}
	if prober.sampleCalls != 2 {
		t.Fatalf("expired entry should trigger a probe, got %d calls", prober.sampleCalls)
	}
}

func TestCacheForceBypassesTTL(t *testing.T) {
	prober := &fakeProber{samples: cacheTestSamples()}
	cache, _ := newTestCache(prober)
	ctx := context.Background()

	if _, err := cache.Get(ctx, false, 0); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(ctx, true, 0); err != nil {
		t.Fatalf("forced Get: %v", err)
	}
	if prober.sampleCalls != 2 {
		t.Fatalf("force should bypass the TTL, got %d calls", prober.sampleCalls)
	}

	stats := cache.Stats()
	if stats.Hits != 0 || stats.Misses != 2 {
		t.Fatalf("Stats() = %+v, want 0 hits 2 misses", stats)
	}
}

func TestCachePropagatesProbeError(t *testing.T) {
	probeErr := errors.New("proc unreadable")
	prober := &fakeProber{sampleErr: probeErr}
	cache, _ := newTestCache(prober)

	_, err := cache.Get(context.Background(), false, 0)
	if !errors.Is(err, probeErr) {
		t.Fatalf("Get error = %v, want %v", err, probeErr)
	}

	// A failed refresh must not count as a miss with a stored entry.
	if got := cache.Stats().Misses; got != 0 {
		t.Fatalf("failed refresh counted as miss: %d", got)
	}
}

func TestCacheStatsEmpty(t *testing.T) {
	cache, _ := newTestCache(&fakeProber{})
	if got := cache.Stats(); got.HitRate != 0 {
		t.Fatalf("empty cache HitRate = %.1f, want 0", got.HitRate)
	}
}

func cacheTestSamples() []probe.ProcessSample {
	return []probe.ProcessSample{
		sample(1, 0, "systemd", 0),
		sample(100, 1, "postgres", 4096),
	}
}
