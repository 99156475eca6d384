package monitor

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/probe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProber is a scripted probe.Prober. swapSeq is consumed one reading
// per SwapPercent call, with the last value repeating.
type fakeProber struct {
	samples     []probe.ProcessSample
	sampleErr   error
	sampleCalls int

	swapSeq  []float64
	swapIdx  int
	swapErr  error
	memPct   float64

	reclaimFreed uint64
	reclaimErr   error
	reclaimCalls int
}

func (f *fakeProber) SampleAll(ctx context.Context) ([]probe.ProcessSample, error) {
	f.sampleCalls++
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	return f.samples, nil
}

func (f *fakeProber) SwapPercent() (float64, error) {
	if f.swapErr != nil {
		return 0, f.swapErr
	}
	if len(f.swapSeq) == 0 {
		return 0, nil
	}
	v := f.swapSeq[f.swapIdx]
	if f.swapIdx < len(f.swapSeq)-1 {
		f.swapIdx++
	}
	return v, nil
}

func (f *fakeProber) MemoryPercent() (float64, error) {
	return f.memPct, nil
}

func (f *fakeProber) ReclaimCache(ctx context.Context) (uint64, error) {
	f.reclaimCalls++
	if f.reclaimErr != nil {
		return 0, f.reclaimErr
	}
	return f.reclaimFreed, nil
}

// fakeCooldown marks a fixed set of units as cooling down.
type fakeCooldown struct {
	cooling map[string]bool
}

func (f *fakeCooldown) InCooldown(unit string, now time.Time) bool {
	return f.cooling[unit]
}

// fakeController records restarts and optionally fails them.
type fakeController struct {
	fakeCooldown
	restarted  []string
	restartErr error
}

func (f *fakeController) Restart(ctx context.Context, unit string) error {
	f.restarted = append(f.restarted, unit)
	return f.restartErr
}

func sample(pid, ppid int, command string, swapBytes uint64) probe.ProcessSample {
	return probe.ProcessSample{
		PID:       pid,
		ParentPID: ppid,
		Command:   command,
		SwapBytes: swapBytes,
	}
}
