package vango

import (
	"fmt"
	"slices"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// SuspenseContext tracks the tasks that scopes below a SuspenseBoundary are
// waiting for.
type SuspenseContext struct {
	rt       *Runtime
	scope    ScopeID
	pending  map[TaskID]map[ScopeID]struct{}
	fallback func() *vdom.VNode
}

// SuspenseBoundaryProps configures a SuspenseBoundary.
type SuspenseBoundaryProps struct {
	// Children is the content rendered below the boundary.
	Children *vdom.VNode

	// Fallback renders the node shown in place of each suspended component.
	// It must return a new node on every call. Nil shows a placeholder.
	Fallback func() *vdom.VNode
}

// SuspenseBoundary renders its children and shows Fallback at the position of
// every descendant that suspends, until the task it waits for completes.
func SuspenseBoundary(s *Scope, p SuspenseBoundaryProps) (*vdom.VNode, error) {
	c := UseHook(s, func() *SuspenseContext {
		return &SuspenseContext{rt: s.rt, scope: s.id, pending: make(map[TaskID]map[ScopeID]struct{})}
	})
	c.fallback = p.Fallback
	ProvideContext(s, c)
	return p.Children, nil
}

// Suspended reports whether any descendant is waiting for a task.
func (c *SuspenseContext) Suspended() bool { return len(c.pending) > 0 }

// PendingTasks returns the outstanding tasks in id order.
func (c *SuspenseContext) PendingTasks() []TaskID {
	out := make([]TaskID, 0, len(c.pending))
	for id := range c.pending {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Scope returns the boundary's scope id.
func (c *SuspenseContext) Scope() ScopeID { return c.scope }

func (c *SuspenseContext) fallbackNode() *vdom.VNode {
	if c.fallback == nil {
		return vdom.Placeholder()
	}
	if n := c.fallback(); n != nil {
		return n
	}
	return vdom.Placeholder()
}

func (c *SuspenseContext) track(task TaskID, scope ScopeID) {
	waiters, ok := c.pending[task]
	if !ok {
		waiters = make(map[ScopeID]struct{})
		c.pending[task] = waiters
	}
	waiters[scope] = struct{}{}
}

// release drops scope's interest in task.
func (c *SuspenseContext) release(task TaskID, scope ScopeID) {
	waiters, ok := c.pending[task]
	if !ok {
		return
	}
	delete(waiters, scope)
	if len(waiters) == 0 {
		delete(c.pending, task)
		c.settled()
	}
}

// resolve wakes every scope waiting for task.
func (c *SuspenseContext) resolve(task TaskID) {
	waiters, ok := c.pending[task]
	if !ok {
		return
	}
	delete(c.pending, task)
	for id := range waiters {
		c.rt.MarkDirty(id)
	}
	c.settled()
}

func (c *SuspenseContext) settled() {
	if len(c.pending) == 0 {
		c.rt.MarkDirty(c.scope)
	}
}

// suspend parks s on task and returns the fallback for its position.
func (rt *Runtime) suspend(s *Scope, task TaskID) *vdom.VNode {
	_, live := rt.tasks[task]
	if !live && (task == 0 || task > rt.nextTask) {
		return rt.captureFault(s, fmt.Errorf("vango: suspended on unknown task %d", task))
	}
	c, ok := lookupContext[*SuspenseContext](rt, s.parent, s.id != ScopeRoot)
	if !ok {
		rt.invariant("scope %d suspended outside of any suspense boundary", s.id)
		return vdom.Placeholder()
	}
	if s.suspendedOn != task {
		rt.releaseSuspension(s)
	}
	c.track(task, s.id)
	s.suspendedOn = task
	s.suspense = c
	s.status = ScopeSuspended
	// A cancelled task never completes, so its waiters stay parked.
	if live && !slices.Contains(rt.waiting[task], c) {
		rt.waiting[task] = append(rt.waiting[task], c)
	}
	s.Logger().Debug("scope suspended", "task", uint64(task), "boundary", uint32(c.scope), "cancelled", !live)
	return c.fallbackNode()
}

func (rt *Runtime) releaseSuspension(s *Scope) {
	if s.suspendedOn == 0 {
		return
	}
	s.suspense.release(s.suspendedOn, s.id)
	s.suspendedOn = 0
	s.suspense = nil
}

func (rt *Runtime) resolveWaiters(task TaskID) {
	for _, c := range rt.waiting[task] {
		c.resolve(task)
	}
	delete(rt.waiting, task)
}
