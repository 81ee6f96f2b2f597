// Package scheduler implements the Scheduler: the background reorderer
// that keeps the pending sequence ordered under the active policy without
// forcing the Dispatcher to sort on every pop (spec §4.6).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/crabzie/csubatch/internal/policy"
	"github.com/crabzie/csubatch/internal/queuemanager"
	"github.com/crabzie/csubatch/internal/telemetry"
)

// Scheduler periodically re-sorts the pending sequence when the
// QueueManager's needsSort flag is set.
type Scheduler struct {
	qm   *queuemanager.Manager
	sink telemetry.Sink
	tick time.Duration

	mu     sync.Mutex
	policy policy.Policy

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Scheduler over qm with the given initial policy and
// tick interval (spec §6 schedulerTickMs, default 500ms).
func New(qm *queuemanager.Manager, initial policy.Policy, tick time.Duration, sink telemetry.Sink) *Scheduler {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &Scheduler{qm: qm, sink: sink, tick: tick, policy: initial}
}

// Policy returns the active policy.
func (s *Scheduler) Policy() policy.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// SetPolicy installs p as the active policy if it differs from the
// current one, marks the queue dirty, and performs an immediate
// synchronous sort so that the very next Dispatcher pop observes the new
// ordering, regardless of where the background tick currently is
// (spec §4.6, §5 ordering guarantee).
func (s *Scheduler) SetPolicy(p policy.Policy) {
	s.mu.Lock()
	changed := p != s.policy
	if changed {
		s.policy = p
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	s.qm.SetNeedsSort(true)
	s.sink.Log(telemetry.Info, "scheduling policy changed to "+p.String())
	s.sortNow()
}

// Start launches the tick loop in a background goroutine. No-op if
// already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.sink.Log(telemetry.Info, "scheduler started with policy "+s.Policy().String())
	go s.run(ctx, done)
}

// Stop cancels the tick loop and blocks until it has exited.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.sink.Log(telemetry.Info, "scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.qm.IsNeedingSort() {
				s.sortNow()
			}
		}
	}
}

// sortNow takes a snapshot of pending, stable-sorts it under the active
// policy, atomically replaces the pending sequence, and clears needsSort.
// The Scheduler never removes a job — it only permutes (spec §4.6).
func (s *Scheduler) sortNow() {
	active := s.Policy()
	seq := s.qm.Snapshot(queuemanager.SchedulerSource)
	policy.Sort(active, seq)
	s.qm.ReplaceAll(seq, queuemanager.SchedulerSource)
	s.qm.SetNeedsSort(false)
}
