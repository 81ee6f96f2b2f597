// Package errs defines the engine's error taxonomy as sentinel values,
// matching the kinds in spec §7 without building a custom exception
// hierarchy. NotFound is deliberately not one of these sentinels: per
// spec §7 it "returns an empty optional or false from the matching
// operation" rather than an error, which is exactly what
// QueueManager.GetByName/RemoveByName/Remove already do.
package errs

import "errors"

var (
	// ErrValidation covers: null job, empty/whitespace name, non-positive
	// cpuTime, negative priority, null policy.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition is returned when a state transition is rejected
	// by the state table in spec §4.4.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrCancelled covers cooperative cancellation observed during a
	// blocking wait.
	ErrCancelled = errors.New("cancelled")
)
