package vango

import (
	"bytes"
	"fmt"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// DispatchResult describes how an event was handled.
type DispatchResult struct {
	// Listeners is the number of listeners invoked.
	Listeners int

	// Stopped is set when a listener called StopPropagation.
	Stopped bool

	// DefaultPrevented is set when a listener called PreventDefault. The
	// renderer should skip its default action.
	DefaultPrevented bool
}

// Dispatch delivers an event to element id. See HandleEvent.
func (rt *Runtime) Dispatch(id vdom.ElementID, name string, data any) DispatchResult {
	return rt.HandleEvent(vdom.NewEvent(name, id, data))
}

// HandleEvent runs the listeners for e. Listeners on the target run first,
// then, for bubbling events, listeners on each enclosing element up to the
// root until one stops propagation. Non-bubbling events only reach listeners
// on the target itself. Events for unknown ids are ignored.
//
// Listeners typically mark scopes dirty; call RenderImmediate afterwards to
// produce the resulting edits.
func (rt *Runtime) HandleEvent(e *vdom.Event) DispatchResult {
	var res DispatchResult
	if rt.usable() != nil {
		return res
	}
	ref, ok := rt.elements.get(uint32(e.Target))
	if !ok || !ref.valid() {
		rt.logger.Debug("event for unknown element", "event", e.Name, "id", uint32(e.Target))
		return res
	}

	for target := true; ref.valid(); target = false {
		m, ok := rt.mounts.get(uint32(ref.mount))
		if !ok || m == nil {
			break
		}
		node := m.node
		paths := node.Template.AttrPaths
		for _, slot := range node.Template.BubbleSlots() {
			path := paths[slot]
			if target && !e.Bubbles {
				if !bytes.Equal(path, ref.path) {
					continue
				}
			} else if !isAncestorPath(path, ref.path) {
				continue
			}
			for _, a := range node.DynamicAttrs[slot] {
				if !a.IsListener() || a.EventName() != e.Name || a.Value.Listener == nil {
					continue
				}
				rt.invokeListener(m.scope, a, e)
				res.Listeners++
			}
			if e.Stopped() || rt.fatal != nil {
				break
			}
		}
		if !e.Propagates() || rt.fatal != nil {
			break
		}
		ref = m.parent
	}

	res.Stopped = e.Stopped()
	res.DefaultPrevented = e.DefaultPrevented()
	rt.observer.EventDispatched(e.Name, res.Listeners)
	return res
}

func (rt *Runtime) invokeListener(owner ScopeID, a vdom.Attribute, e *vdom.Event) {
	s, ok := rt.Scope(owner)
	err := callListener(a.Value.Listener, e, a.Name)
	if err == nil {
		return
	}
	if !ok {
		rt.logger.Warn("listener of unmounted scope failed", "event", e.Name, "error", err)
		return
	}
	s.Throw(err)
}

func callListener(fn vdom.Listener, e *vdom.Event, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vangoerrors.New("E006").WithDetail(fmt.Sprintf("listener %s panicked: %v", name, r))
		}
	}()
	return fn(e)
}
