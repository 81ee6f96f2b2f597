// Package dispatcher implements the single worker that owns the simulated
// CPU: it drains the queue and drives each job's state through RUNNING to
// a terminal or rescheduled state, with optional time-slicing (spec §4.5).
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/crabzie/csubatch/internal/engine/errs"
	"github.com/crabzie/csubatch/internal/job"
	"github.com/crabzie/csubatch/internal/metrics"
	"github.com/crabzie/csubatch/internal/queuemanager"
	"github.com/crabzie/csubatch/internal/telemetry"
)

// source identifies this component in JobStateManager/QueueManager calls.
const source = "Dispatcher"

// Dispatcher is the worker loop described in spec §4.5. Construct one per
// engine; Start launches its goroutine, Stop cancels it cooperatively.
type Dispatcher struct {
	qm      *queuemanager.Manager
	state   *job.StateManager
	metrics *metrics.Recorder
	sink    telemetry.Sink

	cpuTimeSlice int // simulated seconds; <=0 means no slicing
	idleBackoff  time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) bool // true if interrupted

	// elapsed tracks simulated seconds already run for a job across
	// reschedules, since Job.CPUTime is immutable and can't carry this
	// itself (spec §3). Only ever touched from the single run goroutine.
	elapsed map[*job.Job]int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithCPUTimeSlice sets the simulated time slice in seconds. A
// non-positive value means no slicing (spec §4.5 default).
func WithCPUTimeSlice(seconds int) Option {
	return func(d *Dispatcher) { d.cpuTimeSlice = seconds }
}

// WithIdleBackoff overrides the empty-queue backoff (spec §6 dispatcherIdleMs).
func WithIdleBackoff(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.idleBackoff = d
		}
	}
}

// New constructs a Dispatcher over qm and state, recording timestamps into
// rec and reporting diagnostics to sink.
func New(qm *queuemanager.Manager, state *job.StateManager, rec *metrics.Recorder, sink telemetry.Sink, opts ...Option) *Dispatcher {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	d := &Dispatcher{
		qm:          qm,
		state:       state,
		metrics:     rec,
		sink:        sink,
		idleBackoff: 100 * time.Millisecond,
		now:         time.Now,
		elapsed:     make(map[*job.Job]int),
	}
	d.sleep = d.cancelableSleep
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker loop in a background goroutine. It is a no-op
// if already running.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.sink.Log(telemetry.Info, "dispatcher started")
	go d.run(ctx, d.done)
}

// Stop signals the worker loop to exit and blocks until it has. Any job
// that was RUNNING at the moment of Stop transitions to INTERRUPTED before
// the loop returns (spec §5, Scenario F).
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.sink.Log(telemetry.Info, "dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		if d.qm.IsEmpty() {
			if d.sleep(ctx, d.idleBackoff) {
				return
			}
			continue
		}

		j, err := d.qm.Retrieve(ctx)
		if err != nil {
			if err == errs.ErrCancelled {
				return
			}
			// TransientUnavailable: retry with a short backoff.
			if d.sleep(ctx, d.idleBackoff) {
				return
			}
			continue
		}
		if j == nil {
			continue
		}

		if interrupted := d.execute(ctx, j); interrupted {
			return
		}
	}
}

// execute drives one job through SELECTED -> RUNNING -> terminal or
// rescheduled (spec §4.5 steps 3-7). A job only completes once its
// accumulated elapsed time across every slice reaches job.CPUTime() — the
// job itself never stores this, since CPUTime is immutable, so the
// dispatcher tracks it per job across reschedules. It returns true if the
// dispatcher was cancelled mid-execution.
func (d *Dispatcher) execute(ctx context.Context, j *job.Job) bool {
	if j.Status() != job.Selected {
		if err := d.state.UpdateStatus(j, job.Selected, source, "popped from queue"); err != nil {
			d.sink.LogJob(telemetry.Warn, jobCtx(j), "could not select popped job")
			return false
		}
	}

	if err := d.state.UpdateStatus(j, job.Running, source, "dispatched to simulated CPU"); err != nil {
		d.sink.LogJob(telemetry.Warn, jobCtx(j), "could not run selected job")
		return false
	}
	d.qm.SetRunning(j)
	d.metrics.OnStart(j.Name(), d.now())

	remaining := j.CPUTime() - d.elapsed[j]
	slice := remaining
	if d.cpuTimeSlice > 0 && d.cpuTimeSlice < slice {
		slice = d.cpuTimeSlice
	}

	if interrupted := d.sleep(ctx, time.Duration(slice)*time.Second); interrupted {
		_ = d.state.UpdateStatus(j, job.Interrupted, source, "dispatcher stopped mid-execution")
		d.qm.ClearRunning()
		delete(d.elapsed, j)
		return true
	}

	d.elapsed[j] += slice
	if d.elapsed[j] >= j.CPUTime() {
		_ = d.state.UpdateStatus(j, job.Completed, source, "finished simulated execution")
		d.qm.ClearRunning()
		d.metrics.OnCompletion(j.Name(), d.now())
		delete(d.elapsed, j)
		return false
	}

	_ = d.state.UpdateStatus(j, job.Waiting, source, "time slice expired, rescheduling")
	d.qm.ClearRunning()
	_ = d.qm.Reschedule(j, source)
	return false
}

// cancelableSleep blocks for d or until ctx is done, reporting whether ctx
// won the race.
func (d *Dispatcher) cancelableSleep(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return ctx.Err() != nil
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

func jobCtx(j *job.Job) telemetry.JobContext {
	return telemetry.JobContext{
		Name:     j.Name(),
		CPUTime:  j.CPUTime(),
		Priority: j.Priority(),
		Status:   j.Status().String(),
	}
}
