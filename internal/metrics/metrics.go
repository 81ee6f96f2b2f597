// Package metrics implements MetricsRecorder: per-job arrival/start/
// completion timestamps and the aggregates derived from them (spec §4.8).
package metrics

import (
	"sync"
	"time"
)

// Record is a per-job metrics snapshot (spec §3 MetricsRecord).
type Record struct {
	Name        string
	CPUTime     int
	Priority    int
	ArrivalTime time.Time
	StartTime   time.Time // zero if unstarted
	Completion  time.Time // zero if not completed
}

// WaitTime returns StartTime - ArrivalTime, or zero if unstarted.
func (r Record) WaitTime() time.Duration {
	if r.StartTime.IsZero() {
		return 0
	}
	return r.StartTime.Sub(r.ArrivalTime)
}

// ActualCPUTime returns Completion - StartTime, or zero if incomplete.
func (r Record) ActualCPUTime() time.Duration {
	if r.Completion.IsZero() || r.StartTime.IsZero() {
		return 0
	}
	return r.Completion.Sub(r.StartTime)
}

// TurnaroundTime returns Completion - ArrivalTime, or zero if incomplete.
func (r Record) TurnaroundTime() time.Duration {
	if r.Completion.IsZero() {
		return 0
	}
	return r.Completion.Sub(r.ArrivalTime)
}

// Recorder aggregates per-job Records, keyed by job name. All operations
// are safe for concurrent use; updates referencing an unknown name are
// silently ignored (spec §4.8).
type Recorder struct {
	mu sync.Mutex

	records         map[string]*Record
	totalCompleted  int
	totalSubmitted  int
	systemStartTime time.Time
	lastResetTime   time.Time
}

// NewRecorder constructs an empty Recorder with systemStartTime set to now.
func NewRecorder(now time.Time) *Recorder {
	return &Recorder{
		records:         make(map[string]*Record),
		systemStartTime: now,
		lastResetTime:   now,
	}
}

// OnSubmit creates (or overwrites) the record for name.
func (r *Recorder) OnSubmit(name string, cpuTime, priority int, arrivalTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[name] = &Record{
		Name:        name,
		CPUTime:     cpuTime,
		Priority:    priority,
		ArrivalTime: arrivalTime,
	}
	r.totalSubmitted++
}

// OnStart sets the start time for name's record, if it exists.
func (r *Recorder) OnStart(name string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[name]; ok {
		rec.StartTime = t
	}
}

// OnCompletion sets the completion time for name's record, if it exists,
// and increments totalCompleted.
func (r *Recorder) OnCompletion(name string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[name]; ok {
		rec.Completion = t
		r.totalCompleted++
	}
}

// completedLocked returns the records with a non-zero completion time.
// Caller must hold r.mu.
func (r *Recorder) completedLocked() []*Record {
	var out []*Record
	for _, rec := range r.records {
		if !rec.Completion.IsZero() {
			out = append(out, rec)
		}
	}
	return out
}

// AvgTurnaround returns the average turnaround time in seconds over
// completed jobs, or 0 if there are none.
func (r *Recorder) AvgTurnaround() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	completed := r.completedLocked()
	if len(completed) == 0 {
		return 0
	}
	var total time.Duration
	for _, rec := range completed {
		total += rec.TurnaroundTime()
	}
	return total.Seconds() / float64(len(completed))
}

// AvgWaiting returns the average waiting time in seconds over completed
// jobs, or 0 if there are none.
func (r *Recorder) AvgWaiting() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	completed := r.completedLocked()
	if len(completed) == 0 {
		return 0
	}
	var total time.Duration
	for _, rec := range completed {
		total += rec.WaitTime()
	}
	return total.Seconds() / float64(len(completed))
}

// AvgCPU returns the average actual CPU time in seconds over completed
// jobs, or 0 if there are none.
func (r *Recorder) AvgCPU() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	completed := r.completedLocked()
	if len(completed) == 0 {
		return 0
	}
	var total time.Duration
	for _, rec := range completed {
		total += rec.ActualCPUTime()
	}
	return total.Seconds() / float64(len(completed))
}

// Throughput returns totalCompleted / elapsed-seconds-since-last-reset, or
// 0 if no time has elapsed.
func (r *Recorder) Throughput() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := time.Since(r.lastResetTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.totalCompleted) / elapsed
}

// TotalCompleted returns the number of jobs completed since the last reset.
func (r *Recorder) TotalCompleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalCompleted
}

// TotalSubmitted returns the number of jobs submitted since the last reset.
func (r *Recorder) TotalSubmitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSubmitted
}

// Reset clears the per-job map and counters, preserves systemStartTime,
// and updates lastResetTime.
func (r *Recorder) Reset(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*Record)
	r.totalCompleted = 0
	r.totalSubmitted = 0
	r.lastResetTime = now
}

// SnapshotMap returns a deep copy of the per-job records, keyed by name,
// for tests that want to save and restore metrics state.
func (r *Recorder) SnapshotMap() map[string]Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Record, len(r.records))
	for name, rec := range r.records {
		out[name] = *rec
	}
	return out
}

// MergeMap overlays other onto the current records, for tests restoring a
// saved snapshot.
func (r *Recorder) MergeMap(other map[string]Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, rec := range other {
		copied := rec
		r.records[name] = &copied
	}
}
