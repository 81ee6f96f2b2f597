// Package queue implements JobQueue: an ordered sequence of pending jobs
// plus an at-most-one running slot (spec §4.2). It exposes no locking
// guarantee beyond per-operation atomicity — multi-step invariants are the
// QueueManager's job (spec §4.7).
package queue

import (
	"errors"
	"sync"

	"github.com/crabzie/csubatch/internal/job"
)

// ErrNilJob is returned by Add when given a nil job.
var ErrNilJob = errors.New("queue: nil job")

// Queue is a FIFO sequence of pending jobs plus a running slot.
type Queue struct {
	mu      sync.Mutex
	pending []*job.Job
	running *job.Job
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Add appends job to the tail of the pending sequence.
func (q *Queue) Add(j *job.Job) error {
	if j == nil {
		return ErrNilJob
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, j)
	return nil
}

// PollHead removes and returns the head of the pending sequence, or nil if
// the queue is empty.
func (q *Queue) PollHead() *job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	j := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return j
}

// PeekHead returns the head of the pending sequence without removing it,
// or nil if the queue is empty.
func (q *Queue) PeekHead() *job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	return q.pending[0]
}

// Size returns the number of pending jobs (not counting the running slot).
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IsEmpty reports whether the pending sequence has no jobs.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0
}

// Snapshot returns a copy of the pending sequence in current order.
func (q *Queue) Snapshot() []*job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*job.Job, len(q.pending))
	copy(out, q.pending)
	return out
}

// ReplaceAll atomically replaces the pending contents with seq, preserving
// its order. Used by the Scheduler after a stable sort.
func (q *Queue) ReplaceAll(seq []*job.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = seq
}

// Clear empties the pending sequence and drops the running slot.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.running = nil
}

// SetRunning marks j as the running slot.
func (q *Queue) SetRunning(j *job.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = j
}

// ClearRunning drops the running slot.
func (q *Queue) ClearRunning() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = nil
}

// GetRunning returns the running slot, or nil if nothing is running.
func (q *Queue) GetRunning() *job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Remove deletes the first occurrence of j from the pending sequence by
// identity, reporting whether it was found.
func (q *Queue) Remove(j *job.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, candidate := range q.pending {
		if candidate == j {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// FindByName returns the first pending job with the given name, or nil.
func (q *Queue) FindByName(name string) *job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, candidate := range q.pending {
		if candidate.Name() == name {
			return candidate
		}
	}
	return nil
}
