// Package engine wires Job, Queue, Policy, StateManager, QueueManager,
// Scheduler, Dispatcher, and MetricsRecorder into one value and exposes
// the Submission interface collaborators consume (spec §6). There is no
// process-wide singleton — callers construct one Engine per process
// (spec §9 Design Note).
package engine

import (
	"strings"
	"time"

	"github.com/crabzie/csubatch/internal/dispatcher"
	"github.com/crabzie/csubatch/internal/engine/errs"
	"github.com/crabzie/csubatch/internal/job"
	"github.com/crabzie/csubatch/internal/metrics"
	"github.com/crabzie/csubatch/internal/policy"
	"github.com/crabzie/csubatch/internal/queue"
	"github.com/crabzie/csubatch/internal/queuemanager"
	"github.com/crabzie/csubatch/internal/scheduler"
	"github.com/crabzie/csubatch/internal/telemetry"
)

// source identifies submissions originating from the engine's public API.
const source = "Engine"

// Config holds the tunables the engine itself recognizes (spec §6).
type Config struct {
	CPUTimeSlice   int // simulated seconds; <=0 means no slicing
	SchedulerTick  time.Duration
	DispatcherIdle time.Duration
	InitialPolicy  policy.Policy
}

// DefaultConfig returns the spec's defaults: no slicing, 500ms scheduler
// tick, 100ms dispatcher idle backoff, FCFS policy.
func DefaultConfig() Config {
	return Config{
		CPUTimeSlice:   0,
		SchedulerTick:  500 * time.Millisecond,
		DispatcherIdle: 100 * time.Millisecond,
		InitialPolicy:  policy.FCFS,
	}
}

// Engine is the composed batch scheduling engine.
type Engine struct {
	cfg   Config
	sink  telemetry.Sink
	q     *queue.Queue
	state *job.StateManager
	qm    *queuemanager.Manager
	sched *scheduler.Scheduler
	disp  *dispatcher.Dispatcher
	rec   *metrics.Recorder

	now func() time.Time
}

// New constructs an Engine. sink may be nil, in which case events are
// discarded.
func New(cfg Config, sink telemetry.Sink) *Engine {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	now := time.Now

	q := queue.New()
	state := job.NewStateManager(sink)
	qm := queuemanager.New(q, state, sink, cfg.DispatcherIdle)
	rec := metrics.NewRecorder(now())
	sched := scheduler.New(qm, cfg.InitialPolicy, cfg.SchedulerTick, sink)
	disp := dispatcher.New(qm, state, rec, sink,
		dispatcher.WithCPUTimeSlice(cfg.CPUTimeSlice),
		dispatcher.WithIdleBackoff(cfg.DispatcherIdle),
	)

	return &Engine{
		cfg:   cfg,
		sink:  sink,
		q:     q,
		state: state,
		qm:    qm,
		sched: sched,
		disp:  disp,
		rec:   rec,
		now:   now,
	}
}

// Start launches the Scheduler and Dispatcher background workers.
func (e *Engine) Start() {
	e.sched.Start()
	e.disp.Start()
}

// Stop cooperatively stops the Dispatcher and Scheduler, in that order so
// the currently running job (if any) is interrupted before the reorderer
// is torn down.
func (e *Engine) Stop() {
	e.disp.Stop()
	e.sched.Stop()
}

// Submit validates and admits a new job (spec §6 submission interface).
// Invalid if cpuTime <= 0, priority < 0, or name is empty/whitespace.
func (e *Engine) Submit(name string, cpuTime, priority int) error {
	if strings.TrimSpace(name) == "" {
		return errs.ErrValidation
	}
	if cpuTime <= 0 {
		return errs.ErrValidation
	}
	if priority < 0 {
		return errs.ErrValidation
	}

	arrival := e.now()
	j := job.New(name, cpuTime, priority, arrival)
	if err := e.qm.Add(j, source); err != nil {
		return err
	}
	e.rec.OnSubmit(name, cpuTime, priority, arrival)
	return nil
}

// List returns an ordered snapshot of the pending jobs plus the running
// job, if any, appended last.
func (e *Engine) List() []*job.Job {
	pending := e.qm.Snapshot(source)
	if running := e.qm.GetRunning(); running != nil {
		return append(pending, running)
	}
	return pending
}

// SetPolicy switches the active scheduling policy.
func (e *Engine) SetPolicy(p policy.Policy) {
	e.sched.SetPolicy(p)
}

// Policy returns the active scheduling policy.
func (e *Engine) Policy() policy.Policy {
	return e.sched.Policy()
}

// Remove cancels a pending job by name, returning whether it was found.
func (e *Engine) Remove(name string) bool {
	return e.qm.RemoveByName(name, source)
}

// Subscribe registers an observer for job state-change events.
func (e *Engine) Subscribe(o job.Observer) {
	e.state.Subscribe(o)
}

// Unsubscribe removes a previously registered observer.
func (e *Engine) Unsubscribe(o job.Observer) {
	e.state.Unsubscribe(o)
}

// Metrics returns the engine's MetricsRecorder for callers that want the
// raw aggregates (e.g. a Prometheus exporter).
func (e *Engine) Metrics() *metrics.Recorder {
	return e.rec
}

// QueueManager exposes the underlying facade for introspection callers
// (e.g. getShortest/getHighestPriority) that need more than Submit/List.
func (e *Engine) QueueManager() *queuemanager.Manager {
	return e.qm
}
