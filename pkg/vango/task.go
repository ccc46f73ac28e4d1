package vango

import (
	"context"
	"errors"
	"fmt"
	"sync"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

// TaskID identifies a spawned task. Ids are never reused within a runtime.
type TaskID uint64

type task struct {
	id     TaskID
	scope  ScopeID
	cancel context.CancelFunc

	cancelled bool
	completed bool
	result    completion
}

// completion is what a task goroutine hands back to the host goroutine.
type completion struct {
	id    TaskID
	err   error
	apply func()
}

// ingress is the only state shared with task goroutines.
type ingress struct {
	mu    sync.Mutex
	queue []completion
	wake  chan struct{}
}

func newIngress() *ingress {
	return &ingress{wake: make(chan struct{}, 1)}
}

func (in *ingress) push(c completion) {
	in.mu.Lock()
	in.queue = append(in.queue, c)
	in.mu.Unlock()
	select {
	case in.wake <- struct{}{}:
	default:
	}
}

func (in *ingress) drain() []completion {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.queue
	in.queue = nil
	return out
}

// Spawn runs fn on its own goroutine, owned by the scope. The task's context
// is cancelled when the scope unmounts. The error returned by fn is reported
// to the scope's logger and observer.
func (s *Scope) Spawn(fn func(ctx context.Context) error) TaskID {
	return SpawnResult(s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, nil)
}

// SpawnResult runs fn on its own goroutine and calls done with its result on
// the host goroutine, during the RenderImmediate that polls the task. done is
// never called for a task that was cancelled.
func SpawnResult[T any](s *Scope, fn func(ctx context.Context) (T, error), done func(T, error)) TaskID {
	rt := s.rt
	rt.nextTask++
	id := rt.nextTask
	ctx, cancel := context.WithCancel(rt.ctx)
	rt.tasks[id] = &task{id: id, scope: s.id, cancel: cancel}
	s.tasks[id] = struct{}{}

	go func() {
		var v T
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = vangoerrors.New("E020").
						WithComponent(s.name).
						WithScope(uint32(s.id)).
						WithDetail(fmt.Sprint(r))
				}
			}()
			v, err = fn(ctx)
		}()
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			err = vangoerrors.New("E021").
				WithComponent(s.name).
				WithScope(uint32(s.id)).
				Wrap(err)
		}
		rt.inbox.push(completion{id: id, err: err, apply: func() {
			if done != nil {
				done(v, err)
			}
		}})
	}()
	return id
}

// CancelTask cancels a task. Its result, if it arrives, is discarded. Scopes
// suspended on the task stay suspended until they render a different
// outcome or unmount.
func (rt *Runtime) CancelTask(id TaskID) {
	rt.cancelTask(id, false)
}

// PendingTasks returns the number of tasks that have not been polled.
func (rt *Runtime) PendingTasks() int { return len(rt.tasks) }

// cancelTask drops a task. With wake, scopes suspended on it re-render;
// otherwise they stay parked on the dead id.
func (rt *Runtime) cancelTask(id TaskID, wake bool) {
	t, ok := rt.tasks[id]
	if !ok {
		return
	}
	t.cancelled = true
	t.cancel()
	delete(rt.tasks, id)
	if s, ok := rt.Scope(t.scope); ok {
		delete(s.tasks, id)
	}
	if wake {
		rt.resolveWaiters(id)
	} else {
		delete(rt.waiting, id)
	}
}

// pollTask applies a completed task on the host goroutine.
func (rt *Runtime) pollTask(id TaskID) {
	t, ok := rt.tasks[id]
	if !ok || t.cancelled || !t.completed {
		return
	}
	delete(rt.tasks, id)
	t.cancel()
	owner, ownerOK := rt.Scope(t.scope)
	if ownerOK {
		delete(owner.tasks, id)
	}

	if t.result.err != nil {
		log := rt.logger
		if ownerOK {
			log = owner.Logger()
		}
		log.Warn("task failed", "task", uint64(id), "error", t.result.err)
	}
	if t.result.apply != nil {
		t.result.apply()
	}
	rt.resolveWaiters(id)
	rt.observer.TaskFinished(id, t.result.err)
}
