// Package policy defines the total orders the Scheduler sorts pending jobs
// by. Policy is a tagged enumeration, not a per-policy type hierarchy, so
// adding a policy is a local change (spec §9).
package policy

import (
	"sort"
	"strings"

	"github.com/crabzie/csubatch/internal/job"
)

// Policy is one of the scheduling orders the engine supports.
type Policy int

const (
	// FCFS orders by ascending arrival time.
	FCFS Policy = iota
	// SJF orders by ascending CPU time.
	SJF
	// Priority orders by ascending priority value — smaller value sorts
	// earlier. This is the convention spec §4.3 fixes, resolving the
	// contradiction between the original source's two incompatible
	// PRIORITY comparators.
	Priority
)

func (p Policy) String() string {
	switch p {
	case FCFS:
		return "FCFS"
	case SJF:
		return "SJF"
	case Priority:
		return "PRIORITY"
	default:
		return "UNKNOWN"
	}
}

// ParseName maps a case-insensitive policy name to a Policy, defaulting to
// FCFS (and ok=false) on an unrecognized name.
func ParseName(name string) (Policy, bool) {
	switch strings.ToLower(name) {
	case "fcfs":
		return FCFS, true
	case "sjf":
		return SJF, true
	case "priority":
		return Priority, true
	default:
		return FCFS, false
	}
}

// key returns the comparison key for j under p.
func key(p Policy, j *job.Job) int64 {
	switch p {
	case SJF:
		return int64(j.CPUTime())
	case Priority:
		return int64(j.Priority())
	default: // FCFS
		return j.ArrivalTime().UnixNano()
	}
}

// Sort stable-sorts seq in place according to p. Ties are broken by
// arrival time, then by original (submission) order — sort.SliceStable
// preserves submission order among jobs whose primary and tie-break keys
// are both equal (spec §4.3, invariant 3).
func Sort(p Policy, seq []*job.Job) {
	sort.SliceStable(seq, func(i, j int) bool {
		ki, kj := key(p, seq[i]), key(p, seq[j])
		if ki != kj {
			return ki < kj
		}
		return seq[i].ArrivalTime().Before(seq[j].ArrivalTime())
	})
}
