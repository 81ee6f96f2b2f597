// Package telemetry provides the structured-event sink the engine logs
// through, and a zap-backed implementation of it.
package telemetry

// Level is one of the four severities the engine ever emits at.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// JobContext carries the job fields an event is about, mirroring the
// {name, cpuTime, priority, status} tuple from the Observer/EventSink
// interface.
type JobContext struct {
	Name     string
	CPUTime  int
	Priority int
	Status   string
}

// Sink is the structured-event collaborator the engine logs through. It
// never formats file paths or handles rotation; that belongs to the
// file-backed logging subsystem out of scope for this module.
type Sink interface {
	Log(level Level, message string)
	LogJob(level Level, job JobContext, message string)
}

// NopSink discards everything. Useful in tests that don't care about
// logging output.
type NopSink struct{}

func (NopSink) Log(Level, string)                  {}
func (NopSink) LogJob(Level, JobContext, string) {}
