package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// settleDelay is how long ReclaimCache waits after the drop_caches write
// before re-reading memory counters. The kernel frees pages asynchronously.
const settleDelay = 1 * time.Second

// ProcProber reads process and memory state from a procfs tree. The file
// access points are overridable so tests can run against a fake /proc.
type ProcProber struct {
	logger *slog.Logger

	// procRoot is the procfs mount point, normally "/proc".
	procRoot string

	openMeminfo   func() (io.ReadCloser, error)
	dropCaches    func() error
	syncFunc      func()
	sysinfoFunc   func(*unix.Sysinfo_t) error
	sleep         func(ctx context.Context, d time.Duration)
	now           func() time.Time
}

// NewProcProber creates a prober rooted at /proc. If logger is nil, a
// no-op logger is used.
func NewProcProber(logger *slog.Logger) *ProcProber {
	return newProcProber("/proc", logger)
}

func newProcProber(root string, logger *slog.Logger) *ProcProber {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &ProcProber{
		logger:   logger,
		procRoot: root,
	}
	p.openMeminfo = func() (io.ReadCloser, error) {
		return os.Open(filepath.Join(root, "meminfo"))
	}
	p.dropCaches = func() error {
		return os.WriteFile(filepath.Join(root, "sys", "vm", "drop_caches"), []byte("3\n"), 0o200)
	}
	p.syncFunc = unix.Sync
	p.sysinfoFunc = unix.Sysinfo
	p.sleep = func(ctx context.Context, d time.Duration) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	p.now = time.Now
	return p
}

// SampleAll walks the procfs tree once and reads /proc/<pid>/status for
// every numeric entry. Individual read or parse failures drop that PID
// from the result; the scan itself only fails if the tree is unreadable.
func (p *ProcProber) SampleAll(ctx context.Context) ([]ProcessSample, error) {
	entries, err := os.ReadDir(p.procRoot)
	if err != nil {
		return nil, fmt.Errorf("probe: read %s: %w", p.procRoot, err)
	}

	sampledAt := p.now()
	samples := make([]ProcessSample, 0, len(entries))

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}

		sample, ok := p.readStatus(pid)
		if !ok {
			// Process exited mid-scan or denied access. Omission, not failure.
			continue
		}
		sample.SampledAt = sampledAt
		samples = append(samples, sample)
	}

	// ReadDir returns entries sorted by name, which for PIDs is lexical
	// rather than numeric order. Re-sort numerically.
	sortSamplesByPID(samples)
	return samples, nil
}

// readStatus parses Name, PPid, VmRSS and VmSwap from one status file.
func (p *ProcProber) readStatus(pid int) (ProcessSample, bool) {
	f, err := os.Open(filepath.Join(p.procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return ProcessSample{}, false
	}
	defer f.Close()

	sample := ProcessSample{PID: pid}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Name:"):
			sample.Command = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		case strings.HasPrefix(line, "PPid:"):
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "PPid:")))
			if err == nil {
				sample.ParentPID = v
			}
		case strings.HasPrefix(line, "VmRSS:"):
			sample.RSSBytes = parseKBLine(line)
		case strings.HasPrefix(line, "VmSwap:"):
			sample.SwapBytes = parseKBLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return ProcessSample{}, false
	}
	if sample.Command == "" {
		return ProcessSample{}, false
	}
	return sample, true
}

// parseKBLine extracts the numeric kB value from a status line such as
// "VmSwap:     1024 kB" and converts it to bytes. Unparseable lines
// count as zero; kernel threads have no Vm* lines at all.
func parseKBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}

func sortSamplesByPID(samples []ProcessSample) {
	for i := 1; i < len(samples); i++ {
		for j := i; j > 0 && samples[j].PID < samples[j-1].PID; j-- {
			samples[j], samples[j-1] = samples[j-1], samples[j]
		}
	}
}

// memCounters holds the subset of /proc/meminfo swapwatch cares about,
// all in bytes.
type memCounters struct {
	memTotal     uint64
	memAvailable uint64
	swapTotal    uint64
	swapFree     uint64
}

// readMeminfo parses /proc/meminfo. When the file reports no swap at all
// (some container runtimes hide it), sysinfo(2) is used as a fallback.
func (p *ProcProber) readMeminfo() (memCounters, error) {
	f, err := p.openMeminfo()
	if err != nil {
		return memCounters{}, fmt.Errorf("probe: open meminfo: %w", err)
	}
	defer f.Close()

	var c memCounters
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			c.memTotal = parseKBLine(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			c.memAvailable = parseKBLine(line)
		case strings.HasPrefix(line, "SwapTotal:"):
			c.swapTotal = parseKBLine(line)
		case strings.HasPrefix(line, "SwapFree:"):
			c.swapFree = parseKBLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return memCounters{}, fmt.Errorf("probe: scan meminfo: %w", err)
	}

	if c.swapTotal == 0 {
		var si unix.Sysinfo_t
		if err := p.sysinfoFunc(&si); err == nil && si.Totalswap > 0 {
			unit := uint64(si.Unit)
			if unit == 0 {
				unit = 1
			}
			c.swapTotal = uint64(si.Totalswap) * unit
			c.swapFree = uint64(si.Freeswap) * unit
		}
	}

	return c, nil
}

// SwapPercent returns swap usage as a percentage of total swap. Zero
// configured swap reports 0% rather than an error.
func (p *ProcProber) SwapPercent() (float64, error) {
	c, err := p.readMeminfo()
	if err != nil {
		return 0, err
	}
	if c.swapTotal == 0 {
		return 0, nil
	}
	used := c.swapTotal - c.swapFree
	return clampPercent(float64(used) / float64(c.swapTotal) * 100.0), nil
}

// MemoryPercent returns physical memory usage as a percentage.
func (p *ProcProber) MemoryPercent() (float64, error) {
	c, err := p.readMeminfo()
	if err != nil {
		return 0, err
	}
	if c.memTotal == 0 {
		return 0, fmt.Errorf("probe: meminfo reports zero MemTotal")
	}
	used := c.memTotal - c.memAvailable
	return clampPercent(float64(used) / float64(c.memTotal) * 100.0), nil
}

// ReclaimCache syncs dirty pages and asks the kernel to drop page cache,
// dentries and inodes, then measures how much memory plus swap the
// operation freed. The freed count is zero when the kernel had nothing
// to give back.
func (p *ProcProber) ReclaimCache(ctx context.Context) (uint64, error) {
	before, err := p.readMeminfo()
	if err != nil {
		return 0, err
	}

	p.syncFunc()
	if err := p.dropCaches(); err != nil {
		if os.IsPermission(err) {
			return 0, fmt.Errorf("%w: %v", ErrReclaimDenied, err)
		}
		return 0, fmt.Errorf("probe: drop caches: %w", err)
	}

	p.sleep(ctx, settleDelay)

	after, err := p.readMeminfo()
	if err != nil {
		return 0, err
	}

	var freed uint64
	beforeUsed := (before.memTotal - before.memAvailable) + (before.swapTotal - before.swapFree)
	afterUsed := (after.memTotal - after.memAvailable) + (after.swapTotal - after.swapFree)
	if beforeUsed > afterUsed {
		freed = beforeUsed - afterUsed
	}

	p.logger.Debug("cache reclaim complete", "freed_bytes", freed)
	return freed, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Compile-time interface compliance check.
var _ Prober = (*ProcProber)(nil)
