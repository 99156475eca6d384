package monitor

import (
	"sort"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/probe"
)

// rankingSize caps how many entries a Ranking retains.
const rankingSize = 10

// RankEntry is one row of the swap ranking: a managed service or a lone
// process, with its aggregate swap footprint.
type RankEntry struct {
	// Label is the service match name, or the command name for an
	// unmanaged process.
	Label string `json:"label"`
	// Unit is the systemd unit when the entry is service-backed, empty
	// for unmanaged processes.
	Unit string `json:"unit,omitempty"`
	// SwapBytes is the summed swap usage of every PID in the entry.
	SwapBytes uint64 `json:"swap_bytes"`
	// PIDs lists the member processes in ascending order.
	PIDs []int `json:"pids"`
}

// Ranking is the top-N view of swap consumers, descending by swap bytes.
// It is the operational input to action selection, recomputed every cycle.
type Ranking struct {
	Entries     []RankEntry `json:"entries"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// SwapRanker aggregates process samples into service totals.
type SwapRanker struct {
	specs []ServiceSpec
	// noiseFloor drops unmanaged processes at or below this many swap
	// bytes, bounding the ranking against procfs noise.
	noiseFloor uint64
	now        func() time.Time
}

// NewSwapRanker creates a ranker over the given service specs. The
// default noise floor of 0 surfaces any unmanaged process with nonzero
// swap.
func NewSwapRanker(specs []ServiceSpec, noiseFloor uint64) *SwapRanker {
	return &SwapRanker{
		specs:      specs,
		noiseFloor: noiseFloor,
		now:        time.Now,
	}
}

// Rank groups samples into service entries and lone-process entries,
// sorts by descending swap with ascending-PID tie breaks, and truncates
// to the top 10.
//
// A spec with IncludeChildren folds every descendant (by parent-PID
// chain) of a matched process into the service's total; without it only
// exact command matches count. Each PID is claimed by at most one entry;
// service claims win over lone-process listing.
func (r *SwapRanker) Rank(samples []probe.ProcessSample) Ranking {
	children := make(map[int][]int, len(samples))
	byPID := make(map[int]probe.ProcessSample, len(samples))
	for _, s := range samples {
		byPID[s.PID] = s
		children[s.ParentPID] = append(children[s.ParentPID], s.PID)
	}

	claimed := make(map[int]bool, len(samples))
	var entries []RankEntry

	for _, spec := range r.specs {
		var pids []int
		for _, s := range samples {
			if s.Command != spec.Match || claimed[s.PID] {
				continue
			}
			claimed[s.PID] = true
			pids = append(pids, s.PID)
			if spec.IncludeChildren {
				pids = append(pids, descendants(s.PID, children, claimed)...)
			}
		}
		if len(pids) == 0 {
			continue
		}

		entry := RankEntry{Label: spec.Match, Unit: spec.Unit}
		for _, pid := range pids {
			entry.SwapBytes += byPID[pid].SwapBytes
			entry.PIDs = append(entry.PIDs, pid)
		}
		sort.Ints(entry.PIDs)
		entries = append(entries, entry)
	}

	// Unmanaged processes surface individually above the noise floor.
	for _, s := range samples {
		if claimed[s.PID] || s.SwapBytes <= r.noiseFloor {
			continue
		}
		entries = append(entries, RankEntry{
			Label:     s.Command,
			SwapBytes: s.SwapBytes,
			PIDs:      []int{s.PID},
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SwapBytes != entries[j].SwapBytes {
			return entries[i].SwapBytes > entries[j].SwapBytes
		}
		return entries[i].PIDs[0] < entries[j].PIDs[0]
	})

	if len(entries) > rankingSize {
		entries = entries[:rankingSize]
	}

	return Ranking{Entries: entries, GeneratedAt: r.now()}
}

// descendants walks the parent-PID tree below root, claiming each PID as
// it goes so no process is counted twice across entries.
func descendants(root int, children map[int][]int, claimed map[int]bool) []int {
	var out []int
	queue := append([]int(nil), children[root]...)
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if claimed[pid] {
			continue
		}
		claimed[pid] = true
		out = append(out, pid)
		queue = append(queue, children[pid]...)
	}
	return out
}
