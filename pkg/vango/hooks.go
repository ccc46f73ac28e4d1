package vango

import (
	"fmt"
	"reflect"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

// HookType identifies the kind of a hook call for order validation.
type HookType uint8

const (
	HookRaw HookType = iota + 1
	HookState
	HookMemo
	HookEffect
	HookFuture
	HookContext
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookRaw:
		return "Hook"
	case HookState:
		return "State"
	case HookMemo:
		return "Memo"
	case HookEffect:
		return "Effect"
	case HookFuture:
		return "Future"
	case HookContext:
		return "Context"
	default:
		return "Unknown"
	}
}

type hookSlot struct {
	kind  HookType
	value any
}

// Disposer is implemented by hook values that hold resources. Dispose is
// called when the owning scope unmounts, in reverse hook order.
type Disposer interface {
	Dispose()
}

type disposer interface {
	dispose()
}

// useSlot returns the value of the next hook slot, creating it with init on
// the first render. It panics with E001 if the hook sequence changed.
func (s *Scope) useSlot(kind HookType, init func() any) any {
	if !s.rendering {
		panic(vangoerrors.New("E001").
			WithComponent(s.name).
			WithScope(uint32(s.id)).
			WithDetail(fmt.Sprintf("%s hook called outside of render", kind)))
	}
	i := s.hookIdx
	s.hookIdx++

	if i < len(s.hooks) {
		if s.hooks[i].kind != kind {
			panic(vangoerrors.New("E001").
				WithComponent(s.name).
				WithScope(uint32(s.id)).
				WithDetail(fmt.Sprintf("hook %d was %s on the previous render, now %s", i, s.hooks[i].kind, kind)).
				WithSuggestion("Call hooks unconditionally at the top of the component"))
		}
		return s.hooks[i].value
	}
	if s.renderCount > 1 {
		panic(vangoerrors.New("E001").
			WithComponent(s.name).
			WithScope(uint32(s.id)).
			WithDetail(fmt.Sprintf("%s hook %d was not called on the first render", kind, i)).
			WithSuggestion("Call hooks unconditionally at the top of the component"))
	}
	v := init()
	s.hooks = append(s.hooks, hookSlot{kind: kind, value: v})
	return v
}

// UseHook stores a value created by init on the first render and returns the
// same value on every later render. Values implementing Disposer are disposed
// when the scope unmounts.
func UseHook[T any](s *Scope, init func() T) T {
	v := s.useSlot(HookRaw, func() any {
		v := init()
		if d, ok := any(v).(Disposer); ok {
			return hookValue[T]{v: v, d: d}
		}
		return hookValue[T]{v: v}
	})
	return v.(hookValue[T]).v
}

type hookValue[T any] struct {
	v T
	d Disposer
}

func (h hookValue[T]) dispose() {
	if h.d != nil {
		h.d.Dispose()
	}
}

// State is a value owned by a scope. Writing it schedules a re-render.
type State[T any] struct {
	scope *Scope
	value T
}

// UseState returns the scope's state for this call site, initialised to
// initial on the first render.
func UseState[T any](s *Scope, initial T) *State[T] {
	return s.useSlot(HookState, func() any {
		return &State[T]{scope: s, value: initial}
	}).(*State[T])
}

// Get returns the current value.
func (st *State[T]) Get() T { return st.value }

// Set replaces the value and marks the scope dirty. Writes after the scope
// has unmounted are dropped.
func (st *State[T]) Set(v T) {
	if !st.scope.Mounted() {
		return
	}
	st.value = v
	st.scope.MarkDirty()
}

// Update applies fn to the current value.
func (st *State[T]) Update(fn func(T) T) {
	st.Set(fn(st.value))
}

type memoSlot[T any] struct {
	value T
	deps  []any
}

// UseMemo caches the result of compute until deps change. Dependencies are
// compared with reflect.DeepEqual.
func UseMemo[T any](s *Scope, compute func() T, deps ...any) T {
	m := s.useSlot(HookMemo, func() any {
		return &memoSlot[T]{value: compute(), deps: deps}
	}).(*memoSlot[T])
	if !reflect.DeepEqual(m.deps, deps) {
		m.value = compute()
		m.deps = deps
	}
	return m.value
}
