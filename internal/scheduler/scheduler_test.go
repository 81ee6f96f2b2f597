package scheduler

import (
	"testing"
	"time"

	"github.com/crabzie/csubatch/internal/job"
	"github.com/crabzie/csubatch/internal/policy"
	"github.com/crabzie/csubatch/internal/queue"
	"github.com/crabzie/csubatch/internal/queuemanager"
	"github.com/crabzie/csubatch/internal/telemetry"
)

func newTestManager() *queuemanager.Manager {
	return queuemanager.New(queue.New(), job.NewStateManager(telemetry.NopSink{}), telemetry.NopSink{}, time.Millisecond)
}

// TestSetPolicySortsSynchronously covers spec §4.6/§5: switching policy
// re-sorts the pending sequence immediately, without waiting for the next
// background tick.
func TestSetPolicySortsSynchronously(t *testing.T) {
	qm := newTestManager()
	base := time.Now()
	short := job.New("short", 1, 0, base)
	long := job.New("long", 9, 0, base.Add(time.Second))
	_ = qm.Add(long, "test")
	_ = qm.Add(short, "test")

	s := New(qm, policy.FCFS, time.Hour, telemetry.NopSink{})

	s.SetPolicy(policy.SJF)

	snap := qm.Snapshot(queuemanager.SchedulerSource)
	if snap[0] != short || snap[1] != long {
		t.Fatalf("SetPolicy did not synchronously re-sort under SJF")
	}
	if qm.IsNeedingSort() {
		t.Fatalf("needsSort still set after a synchronous SetPolicy sort")
	}
}

func TestSetPolicyToSameValueIsANoOp(t *testing.T) {
	qm := newTestManager()
	_ = qm.Add(job.New("a", 1, 0, time.Now()), "test")
	qm.SetNeedsSort(false)

	s := New(qm, policy.FCFS, time.Hour, telemetry.NopSink{})
	s.SetPolicy(policy.FCFS)

	if qm.IsNeedingSort() {
		t.Fatalf("SetPolicy to the current policy should not mark the queue dirty")
	}
}

// TestRunSortsOnDirtyTick covers the background path: a tick observes
// needsSort and sorts, then clears the flag.
func TestRunSortsOnDirtyTick(t *testing.T) {
	qm := newTestManager()
	base := time.Now()
	long := job.New("long", 9, 0, base)
	short := job.New("short", 1, 0, base.Add(time.Second))
	_ = qm.Add(long, "test")
	_ = qm.Add(short, "test")
	qm.SetNeedsSort(true)

	s := New(qm, policy.SJF, 5*time.Millisecond, telemetry.NopSink{})
	s.Start()

	deadline := time.After(time.Second)
	for qm.IsNeedingSort() {
		select {
		case <-deadline:
			t.Fatalf("scheduler never cleared needsSort")
		case <-time.After(time.Millisecond):
		}
	}
	s.Stop()

	snap := qm.Snapshot(queuemanager.SchedulerSource)
	if snap[0] != short || snap[1] != long {
		t.Fatalf("background tick did not sort under SJF")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	qm := newTestManager()
	s := New(qm, policy.FCFS, time.Hour, telemetry.NopSink{})
	s.Start()
	s.Start() // must not deadlock or panic
	s.Stop()
}

func TestStopWithoutStartIsANoOp(t *testing.T) {
	qm := newTestManager()
	s := New(qm, policy.FCFS, time.Hour, telemetry.NopSink{})
	s.Stop() // must not block or panic
}
