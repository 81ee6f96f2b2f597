package job

import (
	"fmt"
	"sync"

	"github.com/crabzie/csubatch/internal/engine/errs"
	"github.com/crabzie/csubatch/internal/telemetry"
)

// transitions enumerates the state table from spec §4.4. A from-state not
// present in the map has no allowed transitions (terminal).
var transitions = map[Status]map[Status]bool{
	Waiting:  {Selected: true, Canceled: true},
	Selected: {Running: true, Waiting: true, Canceled: true},
	Running:  {Completed: true, Interrupted: true, Waiting: true, Canceled: true},
}

func isValidTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// Event is an immutable record of one status change, published
// synchronously to observers (spec §3 JobStateEvent).
type Event struct {
	Job       *Job
	OldStatus Status
	NewStatus Status
	Source    string
	Message   string
}

// Observer is notified after every successful transition. Implementations
// must not block indefinitely (spec §6).
type Observer interface {
	OnJobStateChanged(event Event)
}

// StateManager owns the job status state machine. It is the only
// component capable of mutating a Job's status, since Job.status is
// unexported and StateManager lives in the same package.
type StateManager struct {
	sink telemetry.Sink

	mu        sync.Mutex
	observers []Observer
}

// NewStateManager constructs a StateManager that reports rejected
// transitions and observer panics to sink.
func NewStateManager(sink telemetry.Sink) *StateManager {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &StateManager{sink: sink}
}

// Subscribe registers an observer. Safe to call concurrently with
// UpdateStatus; a registration made during an in-flight notification never
// affects that notification, since notify iterates a snapshot.
func (m *StateManager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Unsubscribe removes a previously registered observer.
func (m *StateManager) Unsubscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.observers {
		if existing == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// UpdateStatus validates and applies a transition, then publishes the
// resulting Event to every observer. A rejected transition leaves the
// job's status untouched, is reported to the sink at warn level, and
// publishes nothing (spec §4.4, Scenario D).
func (m *StateManager) UpdateStatus(j *Job, newStatus Status, source, message string) error {
	if j == nil {
		return errs.ErrValidation
	}

	oldStatus := j.status
	if !isValidTransition(oldStatus, newStatus) {
		m.sink.LogJob(telemetry.Warn, telemetry.JobContext{
			Name:     j.name,
			CPUTime:  j.cpuTime,
			Priority: j.priority,
			Status:   oldStatus.String(),
		}, "invalid job status transition "+oldStatus.String()+" -> "+newStatus.String()+" requested by "+source)
		return errs.ErrInvalidTransition
	}

	j.status = newStatus

	logMsg := message
	if logMsg == "" {
		logMsg = "job status changed from " + oldStatus.String() + " to " + newStatus.String()
	}
	m.sink.LogJob(telemetry.Info, telemetry.JobContext{
		Name:     j.name,
		CPUTime:  j.cpuTime,
		Priority: j.priority,
		Status:   newStatus.String(),
	}, logMsg+" (by "+source+")")

	m.notify(Event{Job: j, OldStatus: oldStatus, NewStatus: newStatus, Source: source, Message: message})
	return nil
}

// notify delivers the event to a snapshot of the observer list so that
// exceptions (panics) from one observer don't abort delivery to the rest,
// and registrations mid-notification don't affect this event (spec §9).
func (m *StateManager) notify(event Event) {
	m.mu.Lock()
	snapshot := make([]Observer, len(m.observers))
	copy(snapshot, m.observers)
	m.mu.Unlock()

	for _, o := range snapshot {
		m.safeNotify(o, event)
	}
}

func (m *StateManager) safeNotify(o Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			m.sink.Log(telemetry.Warn, fmt.Sprintf("observer panicked while handling job state event for %q: %v", event.Job.name, r))
		}
	}()
	o.OnJobStateChanged(event)
}
