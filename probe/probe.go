// Package probe reads per-process and system-wide swap state from /proc
// and performs kernel cache reclamation. It is the only package in
// swapwatch that touches the operating system for measurement.
package probe

import (
	"context"
	"errors"
	"time"
)

// ProcessSample is a point-in-time measurement of one process. Samples are
// immutable once captured; a new sampling pass produces new values rather
// than mutating old ones.
type ProcessSample struct {
	// PID is the process identifier.
	PID int `json:"pid"`
	// Command is the short command name from /proc/<pid>/status (Name:).
	Command string `json:"command"`
	// ParentPID is the parent process identifier.
	ParentPID int `json:"parent_pid"`
	// RSSBytes is resident set size in bytes.
	RSSBytes uint64 `json:"rss_bytes"`
	// SwapBytes is swapped-out memory in bytes.
	SwapBytes uint64 `json:"swap_bytes"`
	// SampledAt records when the sample was taken.
	SampledAt time.Time `json:"sampled_at"`
}

// ErrReclaimDenied indicates the kernel refused the drop_caches write,
// typically on an unprivileged or container-restricted host.
var ErrReclaimDenied = errors.New("probe: cache reclaim denied")

// Prober is the system measurement interface consumed by the monitor core.
// The procfs implementation lives in this package; tests substitute fakes.
type Prober interface {
	// SampleAll performs one batched pass over all visible processes and
	// returns their samples ordered by ascending PID. Processes that exit
	// mid-scan or deny access are omitted, never reported as errors.
	SampleAll(ctx context.Context) ([]ProcessSample, error)

	// SwapPercent returns system swap usage as a percentage of configured
	// swap space, 0-100. A host with no swap configured reports 0.
	SwapPercent() (float64, error)

	// MemoryPercent returns physical memory usage as a percentage, 0-100.
	MemoryPercent() (float64, error)

	// ReclaimCache syncs filesystems and drops kernel caches, returning the
	// number of bytes of memory plus swap freed by the operation. A freed
	// count of zero with a nil error means the reclaim ran but had no
	// measurable effect.
	ReclaimCache(ctx context.Context) (uint64, error)
}
