package vango

import (
	"context"
	"sort"
)

// WorkKind is the class of a unit of scheduled work.
type WorkKind uint8

const (
	// WorkRerunScope re-renders a dirty scope.
	WorkRerunScope WorkKind = iota
	// WorkPollTask applies a completed task's result.
	WorkPollTask
)

// String returns the string representation of the WorkKind.
func (k WorkKind) String() string {
	switch k {
	case WorkRerunScope:
		return "RerunScope"
	case WorkPollTask:
		return "PollTask"
	default:
		return "Unknown"
	}
}

// Work is the next thing the runtime will do.
type Work struct {
	Kind  WorkKind
	Scope ScopeID
	Task  TaskID
}

// orderedSet is a set of scopes kept in (height, id) order.
type orderedSet struct {
	items []scopeOrder
}

func (o *orderedSet) search(v scopeOrder) int {
	return sort.Search(len(o.items), func(i int) bool { return !o.items[i].less(v) })
}

func (o *orderedSet) insert(v scopeOrder) {
	i := o.search(v)
	if i < len(o.items) && o.items[i] == v {
		return
	}
	o.items = append(o.items, scopeOrder{})
	copy(o.items[i+1:], o.items[i:])
	o.items[i] = v
}

func (o *orderedSet) remove(v scopeOrder) {
	i := o.search(v)
	if i < len(o.items) && o.items[i] == v {
		o.items = append(o.items[:i], o.items[i+1:]...)
	}
}

func (o *orderedSet) popFirst() (scopeOrder, bool) {
	if len(o.items) == 0 {
		return scopeOrder{}, false
	}
	v := o.items[0]
	o.items = o.items[1:]
	return v, true
}

func (o *orderedSet) len() int { return len(o.items) }

// readyTask is a completed task waiting to be polled.
type readyTask struct {
	order scopeOrder
	id    TaskID
}

// MarkDirty schedules scope id to re-render. Unknown ids are ignored.
func (rt *Runtime) MarkDirty(id ScopeID) {
	if s, ok := rt.Scope(id); ok {
		s.MarkDirty()
	}
}

// HasWork reports whether PopWork would return work.
func (rt *Runtime) HasWork() bool {
	return rt.dirty.len() > 0 || len(rt.ready) > 0
}

// PopWork returns the next unit of work: dirty scopes first, parents before
// children, then completed tasks in their owners' order. Scopes that have
// unmounted since being scheduled are skipped.
func (rt *Runtime) PopWork() (Work, bool) {
	for {
		o, ok := rt.dirty.popFirst()
		if !ok {
			break
		}
		if s, ok := rt.Scope(o.id); ok && s.height == o.height {
			return Work{Kind: WorkRerunScope, Scope: o.id}, true
		}
	}
	for len(rt.ready) > 0 {
		r := rt.ready[0]
		rt.ready = rt.ready[1:]
		if _, ok := rt.tasks[r.id]; ok {
			return Work{Kind: WorkPollTask, Scope: r.order.id, Task: r.id}, true
		}
	}
	return Work{}, false
}

// enqueueReady inserts a completed task after every ready task of an earlier
// or equal scope order.
func (rt *Runtime) enqueueReady(r readyTask) {
	i := sort.Search(len(rt.ready), func(i int) bool { return r.order.less(rt.ready[i].order) })
	rt.ready = append(rt.ready, readyTask{})
	copy(rt.ready[i+1:], rt.ready[i:])
	rt.ready[i] = r
}

// ProcessEvents moves task completions delivered since the last call into
// the ready queue. It returns the number of completions accepted.
func (rt *Runtime) ProcessEvents() int {
	n := 0
	for _, c := range rt.inbox.drain() {
		t, ok := rt.tasks[c.id]
		if !ok || t.cancelled {
			continue
		}
		t.result = c
		t.completed = true
		order := scopeOrder{}
		if s, ok := rt.Scope(t.scope); ok {
			order = s.order()
		}
		rt.enqueueReady(readyTask{order: order, id: c.id})
		n++
	}
	return n
}

// Wake returns a channel that receives a value whenever a task completes. A
// host loop can select on it alongside its own event sources.
func (rt *Runtime) Wake() <-chan struct{} {
	return rt.inbox.wake
}

// WaitForWork blocks until there is work for RenderImmediate or ctx is done.
func (rt *Runtime) WaitForWork(ctx context.Context) error {
	for {
		if err := rt.usable(); err != nil {
			return err
		}
		rt.ProcessEvents()
		if rt.HasWork() {
			return nil
		}
		select {
		case <-rt.inbox.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
