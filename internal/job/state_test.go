package job

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/crabzie/csubatch/internal/engine/errs"
)

func TestUpdateStatusValidTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
	}{
		{Waiting, Selected},
		{Waiting, Canceled},
		{Selected, Running},
		{Selected, Waiting},
		{Selected, Canceled},
		{Running, Completed},
		{Running, Interrupted},
		{Running, Waiting},
		{Running, Canceled},
	}

	for _, c := range cases {
		j := New("job", 1, 1, time.Now())
		j.status = c.from
		sm := NewStateManager(nil)
		if err := sm.UpdateStatus(j, c.to, "test", ""); err != nil {
			t.Errorf("%v -> %v: unexpected error %v", c.from, c.to, err)
		}
		if j.Status() != c.to {
			t.Errorf("%v -> %v: job status is %v, want %v", c.from, c.to, j.Status(), c.to)
		}
	}
}

// TestInvalidTransitionRejected covers Scenario D: an invalid transition
// leaves status unchanged, publishes no event, and is rejected.
func TestInvalidTransitionRejected(t *testing.T) {
	j := New("job", 1, 1, time.Now())
	sm := NewStateManager(nil)

	var notified int32
	sm.Subscribe(observerFunc(func(Event) { atomic.AddInt32(&notified, 1) }))

	err := sm.UpdateStatus(j, Completed, "test", "")
	if err != errs.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if j.Status() != Waiting {
		t.Fatalf("status mutated on rejected transition: %v", j.Status())
	}
	if atomic.LoadInt32(&notified) != 0 {
		t.Fatalf("observer notified on rejected transition")
	}
}

func TestTerminalStatusNeverLeavesAgain(t *testing.T) {
	sm := NewStateManager(nil)
	for _, terminal := range []Status{Completed, Interrupted, Canceled} {
		j := New("job", 1, 1, time.Now())
		j.status = terminal
		for _, target := range []Status{Waiting, Selected, Running, Completed, Interrupted, Canceled} {
			if target == terminal {
				continue
			}
			if err := sm.UpdateStatus(j, target, "test", ""); err == nil {
				t.Errorf("terminal state %v accepted transition to %v", terminal, target)
			}
		}
		if j.Status() != terminal {
			t.Errorf("terminal job status changed: got %v want %v", j.Status(), terminal)
		}
	}
}

// TestObserverPanicIsolation covers spec invariant 7: an observer that
// always panics doesn't prevent other observers from receiving the event,
// and the transition that triggered it isn't rolled back.
func TestObserverPanicIsolation(t *testing.T) {
	j := New("job", 1, 1, time.Now())
	sm := NewStateManager(nil)

	var goodReceived int32
	sm.Subscribe(observerFunc(func(Event) { panic("boom") }))
	sm.Subscribe(observerFunc(func(Event) { atomic.AddInt32(&goodReceived, 1) }))

	if err := sm.UpdateStatus(j, Selected, "test", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status() != Selected {
		t.Fatalf("transition rolled back after observer panic: %v", j.Status())
	}
	if atomic.LoadInt32(&goodReceived) != 1 {
		t.Fatalf("well-behaved observer did not receive event after a sibling panicked")
	}
}

func TestSubscribeDuringNotificationDoesNotAffectInFlightEvent(t *testing.T) {
	j := New("job", 1, 1, time.Now())
	sm := NewStateManager(nil)

	var lateReceived int32
	late := observerFunc(func(Event) { atomic.AddInt32(&lateReceived, 1) })

	sm.Subscribe(observerFunc(func(Event) {
		sm.Subscribe(late)
	}))

	if err := sm.UpdateStatus(j, Selected, "test", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&lateReceived) != 0 {
		t.Fatalf("observer registered mid-notification received the in-flight event")
	}

	if err := sm.UpdateStatus(j, Running, "test", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&lateReceived) != 1 {
		t.Fatalf("observer registered mid-notification missed the next event")
	}
}

type observerFunc func(Event)

func (f observerFunc) OnJobStateChanged(e Event) { f(e) }
