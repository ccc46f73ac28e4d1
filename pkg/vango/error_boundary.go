package vango

import (
	"slices"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// CapturedError is a fault held by an error boundary.
type CapturedError struct {
	Scope     ScopeID
	Component string
	Err       error
}

// ErrorContext collects the faults of the scopes below an ErrorBoundary.
type ErrorContext struct {
	rt       *Runtime
	scope    ScopeID
	fatal    bool
	errors   []CapturedError
	fallback func(err error, reset func()) *vdom.VNode
}

// ErrorBoundaryProps configures an ErrorBoundary.
type ErrorBoundaryProps struct {
	// Children is the content rendered below the boundary.
	Children *vdom.VNode

	// Fallback renders the node shown in place of each faulted component.
	// reset clears every fault held by the boundary. Fallback must return a
	// new node on every call. Nil shows a placeholder.
	Fallback func(err error, reset func()) *vdom.VNode
}

// ErrorBoundary renders its children and shows Fallback at the position of
// every descendant whose render or listener fails. Faulted descendants keep
// showing the fallback until ClearErrors is called.
func ErrorBoundary(s *Scope, p ErrorBoundaryProps) (*vdom.VNode, error) {
	c := UseHook(s, func() *ErrorContext {
		return &ErrorContext{rt: s.rt, scope: s.id}
	})
	c.fallback = p.Fallback
	ProvideContext(s, c)
	return p.Children, nil
}

func rootErrorBoundary(s *Scope, p ErrorBoundaryProps) (*vdom.VNode, error) {
	c := UseHook(s, func() *ErrorContext {
		return &ErrorContext{rt: s.rt, scope: s.id, fatal: true}
	})
	ProvideContext(s, c)
	return p.Children, nil
}

// Errors returns the captured faults in capture order.
func (c *ErrorContext) Errors() []CapturedError {
	return slices.Clone(c.errors)
}

// HasErrors reports whether any fault is held.
func (c *ErrorContext) HasErrors() bool { return len(c.errors) > 0 }

// Scope returns the boundary's scope id.
func (c *ErrorContext) Scope() ScopeID { return c.scope }

// InsertError records a fault for scope and schedules the boundary to
// re-render.
func (c *ErrorContext) InsertError(scope ScopeID, component string, err error) {
	c.errors = append(c.errors, CapturedError{Scope: scope, Component: component, Err: err})
	c.rt.MarkDirty(c.scope)
}

// ClearErrors drops every captured fault and re-renders the faulted scopes so
// they can try again.
func (c *ErrorContext) ClearErrors() {
	for _, e := range c.errors {
		if s, ok := c.rt.Scope(e.Scope); ok && s.faultCtx == c {
			s.fault = nil
			s.faultCtx = nil
			s.status = ScopeMounted
			s.MarkDirty()
		}
	}
	c.errors = nil
	c.rt.MarkDirty(c.scope)
}

func (c *ErrorContext) forget(scope ScopeID) {
	c.errors = slices.DeleteFunc(c.errors, func(e CapturedError) bool { return e.Scope == scope })
}

func (c *ErrorContext) fallbackNode(err error) *vdom.VNode {
	if c.fallback == nil {
		return vdom.Placeholder()
	}
	if n := c.fallback(err, c.ClearErrors); n != nil {
		return n
	}
	return vdom.Placeholder()
}

// captureFault routes err from s to the nearest error boundary above it and
// returns the node to show at s's position.
func (rt *Runtime) captureFault(s *Scope, err error) *vdom.VNode {
	rt.releaseSuspension(s)
	c, ok := lookupContext[*ErrorContext](rt, s.parent, s.id != ScopeRoot)
	if !ok || c.fatal {
		rt.fail(vangoerrors.FromError(err, "E004").WithComponent(s.name).WithScope(uint32(s.id)))
		return vdom.Placeholder()
	}
	s.fault = err
	s.faultCtx = c
	s.status = ScopeFaulted
	c.InsertError(s.id, s.name, err)
	s.Logger().Error("component faulted", "error", err, "boundary", uint32(c.scope))
	return c.fallbackNode(err)
}
