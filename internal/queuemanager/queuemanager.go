// Package queuemanager implements QueueManager: the single-writer facade
// over the JobQueue and the needsSort flag (spec §4.7). Every other
// component reaches the queue through it; the queue guards its own
// contents with a per-operation lock, and Manager's mutex guards needsSort.
package queuemanager

import (
	"context"
	"sync"
	"time"

	"github.com/crabzie/csubatch/internal/engine/errs"
	"github.com/crabzie/csubatch/internal/job"
	"github.com/crabzie/csubatch/internal/queue"
	"github.com/crabzie/csubatch/internal/telemetry"
)

// SchedulerSource is the source string the Scheduler passes for its own
// sort operation. Operations from this source never set needsSort, since
// they're the ones clearing it.
const SchedulerSource = "Scheduler-Sort"

// Manager is the thread-safe facade described in spec §4.7. Its own mutex
// protects needsSort; the embedded Queue protects the pending sequence and
// running slot with its own per-operation lock.
type Manager struct {
	q     *queue.Queue
	state *job.StateManager
	sink  telemetry.Sink

	mu         sync.Mutex
	needsSort  bool
	pollPeriod time.Duration
}

// New constructs a Manager over q, using state for status transitions and
// sink for warn-level diagnostics. pollPeriod is the backoff used while
// Retrieve waits for a job to arrive (spec §6 dispatcherIdleMs).
func New(q *queue.Queue, state *job.StateManager, sink telemetry.Sink, pollPeriod time.Duration) *Manager {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if pollPeriod <= 0 {
		pollPeriod = 100 * time.Millisecond
	}
	return &Manager{q: q, state: state, sink: sink, pollPeriod: pollPeriod}
}

// Add appends job to the pending sequence. needsSort is set unless source
// is SchedulerSource. If the job's incoming status isn't WAITING, the state
// manager is asked to move it to WAITING, and a transition notification
// fires when the state table allows that; a status the table does not let
// return to WAITING (a terminal one) is left unchanged.
func (m *Manager) Add(j *job.Job, source string) error {
	if j == nil {
		m.sink.Log(telemetry.Warn, "attempted to add nil job from "+source)
		return errs.ErrValidation
	}

	if err := m.q.Add(j); err != nil {
		return err
	}
	m.markDirty(source)
	m.sink.LogJob(telemetry.Info, jobCtx(j), "job added to queue by "+source)

	if j.Status() != job.Waiting {
		_ = m.state.UpdateStatus(j, job.Waiting, "QueueManager", "job added to queue by "+source)
	}
	return nil
}

// Retrieve blocks until a job is available or ctx is cancelled, then
// removes and returns the head. It follows the spec's mandated two-phase
// pattern: quick check under lock, release, sleep, retry — never waiting
// on a condition while holding the lock (spec §4.5, §5, §9).
func (m *Manager) Retrieve(ctx context.Context) (*job.Job, error) {
	if j := m.q.PollHead(); j != nil {
		return j, nil
	}

	ticker := time.NewTicker(m.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errs.ErrCancelled
		case <-ticker.C:
			if j := m.q.PollHead(); j != nil {
				return j, nil
			}
		}
	}
}

// Reschedule appends job back to the pending sequence; needsSort is set
// unless source is SchedulerSource.
func (m *Manager) Reschedule(j *job.Job, source string) error {
	if j == nil {
		m.sink.Log(telemetry.Warn, "attempted to reschedule nil job from "+source)
		return errs.ErrValidation
	}
	if err := m.q.Add(j); err != nil {
		return err
	}
	m.markDirty(source)
	m.sink.LogJob(telemetry.Info, jobCtx(j), "job rescheduled by "+source)
	return nil
}

// Remove removes the first occurrence of job from the pending sequence and
// transitions it to CANCELED via the state manager, reporting whether it
// was found.
func (m *Manager) Remove(j *job.Job, source string) bool {
	if j == nil {
		return false
	}
	if !m.q.Remove(j) {
		return false
	}
	_ = m.state.UpdateStatus(j, job.Canceled, source, "removed from queue by "+source)
	return true
}

// RemoveByName looks up a pending job by name, then removes it the same
// way Remove does.
func (m *Manager) RemoveByName(name, source string) bool {
	j := m.q.FindByName(name)
	if j == nil {
		return false
	}
	return m.Remove(j, source)
}

// GetByName returns the first pending job with the given name, or nil.
func (m *Manager) GetByName(name string) *job.Job {
	return m.q.FindByName(name)
}

// Snapshot returns an ordered copy of the pending sequence.
func (m *Manager) Snapshot(source string) []*job.Job {
	return m.q.Snapshot()
}

// ReplaceAll atomically replaces the pending sequence, preserving order.
// Like Add/Reschedule, it sets needsSort unless source is SchedulerSource;
// the Scheduler's own post-sort call leaves the flag for it to clear.
func (m *Manager) ReplaceAll(seq []*job.Job, source string) {
	m.q.ReplaceAll(seq)
	if source != SchedulerSource {
		m.markDirty(source)
	}
}

// Clear empties the pending sequence. needsSort is set unless source is
// SchedulerSource.
func (m *Manager) Clear(source string) {
	m.q.Clear()
	m.markDirty(source)
}

// GetShortest returns the pending job with the minimum CPU time, or nil if
// the queue is empty (introspection helper, spec §4.7).
func (m *Manager) GetShortest() *job.Job {
	seq := m.q.Snapshot()
	return minBy(seq, func(j *job.Job) int64 { return int64(j.CPUTime()) })
}

// GetHighestPriority returns the pending job with the minimum priority
// value — i.e. the highest-priority job under the spec's convention — or
// nil if the queue is empty.
func (m *Manager) GetHighestPriority() *job.Job {
	seq := m.q.Snapshot()
	return minBy(seq, func(j *job.Job) int64 { return int64(j.Priority()) })
}

func minBy(seq []*job.Job, key func(*job.Job) int64) *job.Job {
	if len(seq) == 0 {
		return nil
	}
	best := seq[0]
	bestKey := key(best)
	for _, candidate := range seq[1:] {
		if k := key(candidate); k < bestKey {
			best, bestKey = candidate, k
		}
	}
	return best
}

// Size returns the number of pending jobs.
func (m *Manager) Size() int { return m.q.Size() }

// IsEmpty reports whether the pending sequence has no jobs.
func (m *Manager) IsEmpty() bool { return m.q.IsEmpty() }

// SetRunning marks job as the running slot.
func (m *Manager) SetRunning(j *job.Job) { m.q.SetRunning(j) }

// ClearRunning drops the running slot.
func (m *Manager) ClearRunning() { m.q.ClearRunning() }

// GetRunning returns the running slot, or nil.
func (m *Manager) GetRunning() *job.Job { return m.q.GetRunning() }

// SetNeedsSort directly sets the flag, for the Scheduler's own bookkeeping.
func (m *Manager) SetNeedsSort(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.needsSort = v
}

// IsNeedingSort reports the current value of the needsSort flag.
func (m *Manager) IsNeedingSort() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.needsSort
}

func (m *Manager) markDirty(source string) {
	if source == SchedulerSource {
		return
	}
	m.SetNeedsSort(true)
}

func jobCtx(j *job.Job) telemetry.JobContext {
	return telemetry.JobContext{
		Name:     j.Name(),
		CPUTime:  j.CPUTime(),
		Priority: j.Priority(),
		Status:   j.Status().String(),
	}
}
