package vango

import "time"

// Outcome is the result of running a component once.
type Outcome uint8

const (
	OutcomeReady Outcome = iota
	OutcomeSuspended
	OutcomeFaulted
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeSuspended:
		return "suspended"
	case OutcomeFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Cycle names a unit of runtime work reported to observers.
type Cycle string

const (
	CycleRebuild Cycle = "rebuild"
	CycleRender  Cycle = "render"
)

// Observer receives runtime telemetry. Calls are made on the host goroutine
// and must not block.
type Observer interface {
	// CycleFinished is called after Rebuild or RenderImmediate. Edits is the
	// number of mutations emitted, or -1 when the sink does not count them.
	CycleFinished(kind Cycle, start time.Time, edits int, err error)

	// ScopeRendered is called after every component run.
	ScopeRendered(id ScopeID, name string, d time.Duration, outcome Outcome)

	// EventDispatched is called after an event has been delivered.
	EventDispatched(name string, listeners int)

	// TaskFinished is called when a task completion is applied.
	TaskFinished(id TaskID, err error)
}

// MultiObserver fans out to every observer in order.
type MultiObserver []Observer

func (m MultiObserver) CycleFinished(kind Cycle, start time.Time, edits int, err error) {
	for _, o := range m {
		o.CycleFinished(kind, start, edits, err)
	}
}

func (m MultiObserver) ScopeRendered(id ScopeID, name string, d time.Duration, outcome Outcome) {
	for _, o := range m {
		o.ScopeRendered(id, name, d, outcome)
	}
}

func (m MultiObserver) EventDispatched(name string, listeners int) {
	for _, o := range m {
		o.EventDispatched(name, listeners)
	}
}

func (m MultiObserver) TaskFinished(id TaskID, err error) {
	for _, o := range m {
		o.TaskFinished(id, err)
	}
}

type nopObserver struct{}

func (nopObserver) CycleFinished(Cycle, time.Time, int, error)            {}
func (nopObserver) ScopeRendered(ScopeID, string, time.Duration, Outcome) {}
func (nopObserver) EventDispatched(string, int)                           {}
func (nopObserver) TaskFinished(TaskID, error)                            {}
