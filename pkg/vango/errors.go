package vango

import (
	"errors"
	"fmt"
)

// ErrTerminated is returned by every runtime operation after a fatal fault or
// after Close.
var ErrTerminated = errors.New("vango: runtime terminated")

// ErrAlreadyBuilt is returned when Rebuild is called twice.
var ErrAlreadyBuilt = errors.New("vango: runtime already built")

// ErrNotBuilt is returned when RenderImmediate is called before Rebuild.
var ErrNotBuilt = errors.New("vango: runtime not built")

// SuspendedError is returned from a render to wait for a task. The runtime
// shows the nearest suspense fallback at the component's position and
// re-renders the component once the task completes.
type SuspendedError struct {
	Task TaskID
}

func (e *SuspendedError) Error() string {
	return fmt.Sprintf("vango: suspended on task %d", e.Task)
}

// Suspend returns the error a component returns to wait for task.
func (s *Scope) Suspend(task TaskID) error {
	return &SuspendedError{Task: task}
}

// IsSuspended reports whether err is a suspension.
func IsSuspended(err error) bool {
	var se *SuspendedError
	return errors.As(err, &se)
}
