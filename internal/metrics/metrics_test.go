package metrics

import (
	"testing"
	"time"
)

func TestAveragesZeroWithNoCompletedJobs(t *testing.T) {
	r := NewRecorder(time.Now())
	if r.AvgTurnaround() != 0 || r.AvgWaiting() != 0 || r.AvgCPU() != 0 {
		t.Fatalf("averages with no completed jobs should be 0")
	}
}

func TestOnSubmitStartCompletionLifecycle(t *testing.T) {
	base := time.Now()
	r := NewRecorder(base)

	arrival := base
	start := base.Add(2 * time.Second)
	completion := base.Add(7 * time.Second)

	r.OnSubmit("a", 5, 1, arrival)
	r.OnStart("a", start)
	r.OnCompletion("a", completion)

	snap := r.SnapshotMap()
	rec, ok := snap["a"]
	if !ok {
		t.Fatalf("record for 'a' missing from snapshot")
	}
	if rec.WaitTime() != 2*time.Second {
		t.Errorf("WaitTime() = %v, want 2s", rec.WaitTime())
	}
	if rec.ActualCPUTime() != 5*time.Second {
		t.Errorf("ActualCPUTime() = %v, want 5s", rec.ActualCPUTime())
	}
	if rec.TurnaroundTime() != 7*time.Second {
		t.Errorf("TurnaroundTime() = %v, want 7s", rec.TurnaroundTime())
	}
	if r.TotalCompleted() != 1 {
		t.Errorf("TotalCompleted() = %d, want 1", r.TotalCompleted())
	}
	if r.TotalSubmitted() != 1 {
		t.Errorf("TotalSubmitted() = %d, want 1", r.TotalSubmitted())
	}
}

func TestUpdatesToUnknownNameAreIgnored(t *testing.T) {
	r := NewRecorder(time.Now())
	r.OnStart("ghost", time.Now())
	r.OnCompletion("ghost", time.Now())

	if r.TotalCompleted() != 0 {
		t.Fatalf("OnCompletion for an unknown job incremented totalCompleted")
	}
	if len(r.SnapshotMap()) != 0 {
		t.Fatalf("OnStart for an unknown job created a record")
	}
}

func TestAvgTurnaroundAcrossMultipleJobs(t *testing.T) {
	base := time.Now()
	r := NewRecorder(base)

	r.OnSubmit("a", 1, 0, base)
	r.OnStart("a", base)
	r.OnCompletion("a", base.Add(4*time.Second))

	r.OnSubmit("b", 1, 0, base)
	r.OnStart("b", base)
	r.OnCompletion("b", base.Add(10*time.Second))

	if got := r.AvgTurnaround(); got != 7 {
		t.Fatalf("AvgTurnaround() = %v, want 7", got)
	}
}

func TestResetClearsRecordsAndCounters(t *testing.T) {
	base := time.Now()
	r := NewRecorder(base)
	r.OnSubmit("a", 1, 0, base)
	r.OnStart("a", base)
	r.OnCompletion("a", base.Add(time.Second))

	r.Reset(base.Add(time.Minute))

	if r.TotalCompleted() != 0 || r.TotalSubmitted() != 0 {
		t.Fatalf("Reset did not clear counters")
	}
	if len(r.SnapshotMap()) != 0 {
		t.Fatalf("Reset did not clear records")
	}
}

func TestMergeMapOverlaysSnapshot(t *testing.T) {
	base := time.Now()
	r := NewRecorder(base)
	r.OnSubmit("a", 1, 0, base)
	saved := r.SnapshotMap()

	r.Reset(base.Add(time.Minute))
	r.MergeMap(saved)

	if _, ok := r.SnapshotMap()["a"]; !ok {
		t.Fatalf("MergeMap did not restore the saved record")
	}
}

func TestThroughputIsZeroImmediatelyAfterReset(t *testing.T) {
	base := time.Now()
	r := NewRecorder(base)
	r.OnSubmit("a", 1, 0, base)
	r.OnStart("a", base)
	r.OnCompletion("a", base.Add(time.Second))

	r.Reset(time.Now())
	if got := r.Throughput(); got != 0 {
		t.Fatalf("Throughput() = %v, want 0", got)
	}
}
