package vango

import (
	"context"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// ScopeID identifies a mounted component instance. Ids are reused after the
// scope unmounts.
type ScopeID uint32

// Scopes created by every runtime, in creation order.
const (
	ScopeRoot         ScopeID = 0 // root wrapper holding the boundaries
	ScopeRootSuspense ScopeID = 1 // root SuspenseBoundary
	ScopeRootErrors   ScopeID = 2 // root ErrorBoundary, faults reaching it are fatal
	ScopeApp          ScopeID = 3 // the application component
)

// String returns the id as a decimal string.
func (id ScopeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ScopeStatus is the lifecycle state of a scope.
type ScopeStatus uint8

const (
	ScopeMounted ScopeStatus = iota
	ScopeSuspended
	ScopeFaulted
	ScopeUnmounted
)

// String returns the string representation of the ScopeStatus.
func (s ScopeStatus) String() string {
	switch s {
	case ScopeMounted:
		return "Mounted"
	case ScopeSuspended:
		return "Suspended"
	case ScopeFaulted:
		return "Faulted"
	case ScopeUnmounted:
		return "Unmounted"
	default:
		return "Unknown"
	}
}

// scopeOrder sorts scopes parents-first.
type scopeOrder struct {
	height uint32
	id     ScopeID
}

func (a scopeOrder) less(b scopeOrder) bool {
	if a.height != b.height {
		return a.height < b.height
	}
	return a.id < b.id
}

// Scope is the runtime state of one mounted component. A Scope is only valid
// on the runtime's host goroutine.
type Scope struct {
	rt     *Runtime
	id     ScopeID
	parent ScopeID
	height uint32
	name   string

	comp   renderable
	status ScopeStatus

	// Hook slots, validated by kind on every render.
	hooks   []hookSlot
	hookIdx int

	renderCount int
	rendering   bool

	contexts map[reflect.Type]any
	tasks    map[TaskID]struct{}

	// lastNode is the output of the most recent completed render.
	lastNode *vdom.VNode

	// fault is set while the scope shows an error fallback.
	fault    error
	faultCtx *ErrorContext

	// suspendedOn is the task the scope is waiting for, zero when ready.
	suspendedOn TaskID
	suspense    *SuspenseContext
}

// ID returns the scope's id.
func (s *Scope) ID() ScopeID { return s.id }

// Parent returns the parent scope id. The root scope has no parent.
func (s *Scope) Parent() (ScopeID, bool) {
	if s.id == ScopeRoot {
		return 0, false
	}
	return s.parent, true
}

// Height returns the scope's depth; the root scope has height 0.
func (s *Scope) Height() uint32 { return s.height }

// Name returns the component name.
func (s *Scope) Name() string { return s.name }

// Status returns the scope's lifecycle state.
func (s *Scope) Status() ScopeStatus { return s.status }

// RenderCount returns how many times the component has run.
func (s *Scope) RenderCount() int { return s.renderCount }

// Runtime returns the runtime that owns the scope.
func (s *Scope) Runtime() *Runtime { return s.rt }

// Mounted reports whether the scope is still part of the tree.
func (s *Scope) Mounted() bool { return s.status != ScopeUnmounted }

// Context returns the runtime's base context. It is cancelled when the runtime
// is closed.
func (s *Scope) Context() context.Context { return s.rt.ctx }

// Logger returns the runtime logger annotated with the scope.
func (s *Scope) Logger() *slog.Logger {
	return s.rt.logger.With("scope", uint32(s.id), "component", s.name)
}

// MarkDirty schedules the scope to re-render on the next RenderImmediate.
// It is a no-op once the scope has unmounted.
func (s *Scope) MarkDirty() {
	if s.status == ScopeUnmounted {
		return
	}
	s.rt.dirty.insert(s.order())
}

// Throw routes err to the nearest error boundary as if the component had
// failed to render.
func (s *Scope) Throw(err error) {
	if err == nil || s.status == ScopeUnmounted {
		return
	}
	s.rt.captureFault(s, err)
	s.MarkDirty()
}

func (s *Scope) order() scopeOrder {
	return scopeOrder{height: s.height, id: s.id}
}

func (s *Scope) beginRender() {
	s.hookIdx = 0
	s.rendering = true
	s.renderCount++
}

func (s *Scope) endRender() {
	s.rendering = false
}

// dispose releases hook state in reverse creation order.
func (s *Scope) dispose() {
	for i := len(s.hooks) - 1; i >= 0; i-- {
		if d, ok := s.hooks[i].value.(disposer); ok {
			d.dispose()
		}
	}
	s.hooks = nil
	s.contexts = nil
}
