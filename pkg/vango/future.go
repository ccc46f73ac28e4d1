package vango

import "context"

// FutureState is the state of a Future.
type FutureState uint8

const (
	FuturePending FutureState = iota
	FutureReady
	FutureFailed
)

// String returns the string representation of the FutureState.
func (s FutureState) String() string {
	switch s {
	case FuturePending:
		return "Pending"
	case FutureReady:
		return "Ready"
	case FutureFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Future is the result of an asynchronous computation owned by a scope.
type Future[T any] struct {
	scope *Scope
	fn    func(ctx context.Context) (T, error)

	task  TaskID
	state FutureState
	value T
	err   error
}

// UseFuture starts fn on the first render and returns its future. When fn
// finishes, the scope re-renders. Unmounting the scope cancels fn's context
// and discards its result.
func UseFuture[T any](s *Scope, fn func(ctx context.Context) (T, error)) *Future[T] {
	return s.useSlot(HookFuture, func() any {
		f := &Future[T]{scope: s, fn: fn}
		f.start()
		return f
	}).(*Future[T])
}

func (f *Future[T]) start() {
	f.state = FuturePending
	f.task = SpawnResult(f.scope, f.fn, func(v T, err error) {
		if err != nil {
			f.state = FutureFailed
			f.err = err
		} else {
			f.state = FutureReady
			f.value = v
			f.err = nil
		}
		f.scope.MarkDirty()
	})
}

// State returns the future's state.
func (f *Future[T]) State() FutureState { return f.state }

// Task returns the id of the task computing the current value.
func (f *Future[T]) Task() TaskID { return f.task }

// Value returns the value if the future is ready.
func (f *Future[T]) Value() (T, bool) {
	return f.value, f.state == FutureReady
}

// Err returns the error of a failed future.
func (f *Future[T]) Err() error { return f.err }

// Suspend returns the value once ready. While pending it returns a
// *SuspendedError and a failed future returns its error, so a component can
// hand the error straight back to the runtime:
//
//	user, err := fut.Suspend()
//	if err != nil {
//	    return nil, err
//	}
func (f *Future[T]) Suspend() (T, error) {
	switch f.state {
	case FutureReady:
		return f.value, nil
	case FutureFailed:
		var zero T
		return zero, f.err
	default:
		var zero T
		return zero, &SuspendedError{Task: f.task}
	}
}

// Restart cancels the running computation, if any, and starts a new one.
// Scopes suspended on the old computation re-render and pick up the new one.
func (f *Future[T]) Restart() {
	if f.state == FuturePending {
		f.scope.rt.cancelTask(f.task, true)
	}
	if !f.scope.Mounted() {
		return
	}
	f.start()
	f.scope.MarkDirty()
}
