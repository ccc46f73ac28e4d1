package vdom

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// AttrKind is the kind of an attribute value.
type AttrKind uint8

const (
	AttrNone     AttrKind = iota // Attribute removed
	AttrText                     // String value
	AttrFloat                    // Float value
	AttrInt                      // Integer value
	AttrBool                     // Boolean value
	AttrListener                 // Event listener
	AttrAny                      // Opaque value for custom renderers
)

// String returns the string representation of the AttrKind.
func (k AttrKind) String() string {
	switch k {
	case AttrNone:
		return "None"
	case AttrText:
		return "Text"
	case AttrFloat:
		return "Float"
	case AttrInt:
		return "Int"
	case AttrBool:
		return "Bool"
	case AttrListener:
		return "Listener"
	case AttrAny:
		return "Any"
	default:
		return "Unknown"
	}
}

// Listener handles an event delivered to the element carrying it. A non-nil
// error is routed to the nearest error boundary of the listener's scope.
type Listener func(e *Event) error

// AttrValue is the value of a dynamic attribute.
type AttrValue struct {
	Kind     AttrKind
	Text     string
	Float    float64
	Int      int64
	Bool     bool
	Listener Listener
	Any      any
}

// Equal compares two values the way the diff engine does. Listeners always
// compare equal: the runtime reads the current listener at dispatch time, so
// swapping a closure needs no edit.
func (v AttrValue) Equal(o AttrValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case AttrNone, AttrListener:
		return true
	case AttrText:
		return v.Text == o.Text
	case AttrFloat:
		return v.Float == o.Float
	case AttrInt:
		return v.Int == o.Int
	case AttrBool:
		return v.Bool == o.Bool
	case AttrAny:
		return reflect.DeepEqual(v.Any, o.Any)
	}
	return false
}

// String renders the value as attribute text. None renders as "".
func (v AttrValue) String() string {
	switch v.Kind {
	case AttrText:
		return v.Text
	case AttrFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case AttrInt:
		return strconv.FormatInt(v.Int, 10)
	case AttrBool:
		return strconv.FormatBool(v.Bool)
	case AttrListener:
		return "<listener>"
	case AttrAny:
		return fmt.Sprint(v.Any)
	default:
		return ""
	}
}

// Attribute is one named value in a dynamic attribute slot.
type Attribute struct {
	Name      string
	Namespace string
	Value     AttrValue

	// Volatile attributes are rewritten on every diff because the renderer
	// may change them behind the runtime's back (e.g. an input's value).
	Volatile bool
}

// IsListener reports whether the attribute is an event listener.
func (a Attribute) IsListener() bool {
	return a.Value.Kind == AttrListener
}

// EventName returns the event a listener attribute handles ("onclick" → "click").
func (a Attribute) EventName() string {
	return strings.TrimPrefix(a.Name, "on")
}

// TextAttr creates a string attribute.
func TextAttr(name, value string) Attribute {
	return Attribute{Name: name, Value: AttrValue{Kind: AttrText, Text: value}}
}

// IntAttr creates an integer attribute.
func IntAttr(name string, value int64) Attribute {
	return Attribute{Name: name, Value: AttrValue{Kind: AttrInt, Int: value}}
}

// FloatAttr creates a float attribute.
func FloatAttr(name string, value float64) Attribute {
	return Attribute{Name: name, Value: AttrValue{Kind: AttrFloat, Float: value}}
}

// BoolAttr creates a boolean attribute.
func BoolAttr(name string, value bool) Attribute {
	return Attribute{Name: name, Value: AttrValue{Kind: AttrBool, Bool: value}}
}

// AnyAttr creates an attribute carrying an opaque value.
func AnyAttr(name string, value any) Attribute {
	return Attribute{Name: name, Value: AttrValue{Kind: AttrAny, Any: value}}
}

// NoneAttr creates an attribute that is explicitly absent.
func NoneAttr(name string) Attribute {
	return Attribute{Name: name}
}

// ListenerAttr creates an event listener for event (without the "on" prefix).
func ListenerAttr(event string, fn Listener) Attribute {
	return Attribute{Name: "on" + event, Value: AttrValue{Kind: AttrListener, Listener: fn}}
}

// NS sets the attribute namespace.
func (a Attribute) NS(namespace string) Attribute {
	a.Namespace = namespace
	return a
}

// AsVolatile marks the attribute volatile.
func (a Attribute) AsVolatile() Attribute {
	a.Volatile = true
	return a
}

// Common attributes

// ID sets the id attribute.
func ID(id string) Attribute { return TextAttr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attribute {
	kept := classes[:0:0]
	for _, c := range classes {
		if c != "" {
			kept = append(kept, c)
		}
	}
	return TextAttr("class", strings.Join(kept, " "))
}

// ClassIf returns class when cond is true and an absent attribute otherwise.
func ClassIf(cond bool, class string) Attribute {
	if cond {
		return TextAttr("class", class)
	}
	return NoneAttr("class")
}

// Style sets the style attribute.
func Style(style string) Attribute { return TextAttr("style", style) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attribute { return TextAttr("data-"+key, value) }

// Href sets the href attribute.
func Href(url string) Attribute { return TextAttr("href", url) }

// TitleAttr sets the title attribute.
func TitleAttr(title string) Attribute { return TextAttr("title", title) }

// Value sets the value attribute. It is volatile because users edit inputs.
func Value(v string) Attribute { return TextAttr("value", v).AsVolatile() }

// Checked sets the checked attribute. It is volatile because users toggle it.
func Checked(checked bool) Attribute { return BoolAttr("checked", checked).AsVolatile() }

// Disabled sets the disabled attribute.
func Disabled(disabled bool) Attribute { return BoolAttr("disabled", disabled) }

// Hidden sets the hidden attribute.
func Hidden(hidden bool) Attribute { return BoolAttr("hidden", hidden) }

// TabIndex sets the tabindex attribute.
func TabIndex(index int) Attribute { return IntAttr("tabindex", int64(index)) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Attribute { return TextAttr("aria-label", label) }

// AriaHidden sets the aria-hidden attribute.
func AriaHidden(hidden bool) Attribute { return BoolAttr("aria-hidden", hidden) }

// AriaExpanded sets the aria-expanded attribute.
func AriaExpanded(expanded bool) Attribute { return BoolAttr("aria-expanded", expanded) }

// AriaBusy sets the aria-busy attribute.
func AriaBusy(busy bool) Attribute { return BoolAttr("aria-busy", busy) }
