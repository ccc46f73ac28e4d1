package vdom

// Event is a renderer-originated input event as seen by listeners. Data is the
// event-specific payload forwarded verbatim from the renderer.
type Event struct {
	Name    string
	Target  ElementID
	Data    any
	Bubbles bool

	stopped          bool
	defaultPrevented bool
}

// NewEvent creates an event for dispatch. Bubbles is derived from the name.
func NewEvent(name string, target ElementID, data any) *Event {
	return &Event{Name: name, Target: target, Data: data, Bubbles: EventBubbles(name)}
}

// StopPropagation prevents listeners on ancestor elements from running.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault asks the renderer to skip its default handling.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// Propagates reports whether the event may still reach ancestor listeners.
func (e *Event) Propagates() bool { return e.Bubbles && !e.stopped }

// Stopped reports whether a listener called StopPropagation.
func (e *Event) Stopped() bool { return e.stopped }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// nonBubbling lists the events that are only delivered to their target.
var nonBubbling = map[string]bool{
	"abort":          true,
	"blur":           true,
	"canplay":        true,
	"canplaythrough": true,
	"durationchange": true,
	"emptied":        true,
	"ended":          true,
	"error":          true,
	"focus":          true,
	"load":           true,
	"loadeddata":     true,
	"loadedmetadata": true,
	"loadstart":      true,
	"mouseenter":     true,
	"mouseleave":     true,
	"pause":          true,
	"play":           true,
	"playing":        true,
	"pointerenter":   true,
	"pointerleave":   true,
	"progress":       true,
	"ratechange":     true,
	"scroll":         true,
	"scrollend":      true,
	"seeked":         true,
	"seeking":        true,
	"stalled":        true,
	"suspend":        true,
	"timeupdate":     true,
	"toggle":         true,
	"volumechange":   true,
	"waiting":        true,
}

// EventBubbles reports whether events with this name bubble.
func EventBubbles(name string) bool {
	return !nonBubbling[name]
}

// On creates a listener for an arbitrary event name.
func On(name string, handler func(*Event)) Attribute {
	return ListenerAttr(name, func(e *Event) error {
		handler(e)
		return nil
	})
}

// OnErr creates a listener whose error is routed to the nearest error boundary.
func OnErr(name string, handler Listener) Attribute {
	return ListenerAttr(name, handler)
}

// Mouse events

// OnClick handles click events.
func OnClick(handler func(*Event)) Attribute { return On("click", handler) }

// OnDblClick handles double-click events.
func OnDblClick(handler func(*Event)) Attribute { return On("dblclick", handler) }

// OnMouseDown handles mousedown events.
func OnMouseDown(handler func(*Event)) Attribute { return On("mousedown", handler) }

// OnMouseUp handles mouseup events.
func OnMouseUp(handler func(*Event)) Attribute { return On("mouseup", handler) }

// OnMouseEnter handles mouseenter events. They do not bubble.
func OnMouseEnter(handler func(*Event)) Attribute { return On("mouseenter", handler) }

// OnMouseLeave handles mouseleave events. They do not bubble.
func OnMouseLeave(handler func(*Event)) Attribute { return On("mouseleave", handler) }

// OnContextMenu handles contextmenu (right-click) events.
func OnContextMenu(handler func(*Event)) Attribute { return On("contextmenu", handler) }

// Keyboard events

// OnKeyDown handles keydown events.
func OnKeyDown(handler func(*Event)) Attribute { return On("keydown", handler) }

// OnKeyUp handles keyup events.
func OnKeyUp(handler func(*Event)) Attribute { return On("keyup", handler) }

// Form events

// OnInput handles input events (fired when value changes).
func OnInput(handler func(*Event)) Attribute { return On("input", handler) }

// OnChange handles change events (fired when value is committed).
func OnChange(handler func(*Event)) Attribute { return On("change", handler) }

// OnSubmit handles form submit events.
func OnSubmit(handler func(*Event)) Attribute { return On("submit", handler) }

// OnFocus handles focus events. They do not bubble.
func OnFocus(handler func(*Event)) Attribute { return On("focus", handler) }

// OnBlur handles blur events. They do not bubble.
func OnBlur(handler func(*Event)) Attribute { return On("blur", handler) }

// Other events

// OnScroll handles scroll events. They do not bubble.
func OnScroll(handler func(*Event)) Attribute { return On("scroll", handler) }

// OnLoad handles load events. They do not bubble.
func OnLoad(handler func(*Event)) Attribute { return On("load", handler) }

// OnToggle handles toggle events (for details element).
func OnToggle(handler func(*Event)) Attribute { return On("toggle", handler) }
