package vango

import (
	"fmt"
	"reflect"
	"sort"
)

// effectSlot is the hook state of one UseEffect call site.
type effectSlot struct {
	deps    []any
	ran     bool
	cleanup func()
}

func (e *effectSlot) dispose() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

type pendingEffect struct {
	order scopeOrder
	scope *Scope
	slot  *effectSlot
	fn    func() func()
	deps  []any
}

// UseEffect runs fn after the render that first mounts the scope and again
// after every render in which deps changed. The function fn returns, if not
// nil, runs before the next run and when the scope unmounts. Effects run
// after all edits of a RenderImmediate have been produced, parents first.
func UseEffect(s *Scope, fn func() func(), deps ...any) {
	slot := s.useSlot(HookEffect, func() any { return &effectSlot{} }).(*effectSlot)
	if slot.ran && reflect.DeepEqual(slot.deps, deps) {
		return
	}
	for i := range s.rt.effects {
		if s.rt.effects[i].slot == slot {
			s.rt.effects[i].fn = fn
			s.rt.effects[i].deps = deps
			return
		}
	}
	s.rt.effects = append(s.rt.effects, pendingEffect{
		order: s.order(),
		scope: s,
		slot:  slot,
		fn:    fn,
		deps:  deps,
	})
}

// flushEffects runs queued effects in scope order. Effects queued while
// flushing run in the next cycle.
func (rt *Runtime) flushEffects() {
	queue := rt.effects
	rt.effects = nil
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].order.less(queue[j].order) })
	for _, e := range queue {
		if !e.scope.Mounted() {
			continue
		}
		rt.runEffect(e)
	}
}

func (rt *Runtime) runEffect(e pendingEffect) {
	defer func() {
		if r := recover(); r != nil {
			e.scope.Throw(fmt.Errorf("vango: effect panicked: %v", r))
		}
	}()
	if e.slot.cleanup != nil {
		e.slot.cleanup()
		e.slot.cleanup = nil
	}
	e.slot.deps = e.deps
	e.slot.ran = true
	e.slot.cleanup = e.fn()
}
