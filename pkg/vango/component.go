package vango

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// Render is a component render function. Returning a nil node renders a
// placeholder. Returning a *SuspendedError (see Scope.Suspend) shows the
// nearest suspense fallback; any other error is routed to the nearest error
// boundary.
type Render[P any] func(s *Scope, props P) (*vdom.VNode, error)

// Memoizer lets a props type define its own equality. Without it props are
// compared with reflect.DeepEqual.
type Memoizer[P any] interface {
	Memoize(other P) bool
}

// renderable is a component call the runtime can execute.
type renderable interface {
	vdom.Component
	render(s *Scope) (*vdom.VNode, error)
}

type component[P any] struct {
	name  string
	fn    Render[P]
	ptr   uintptr
	props P
}

// Component places fn with props in the tree.
func Component[P any](fn Render[P], props P) vdom.DynamicNode {
	ptr := reflect.ValueOf(fn).Pointer()
	return vdom.ComponentNode(&component[P]{name: funcName(ptr), fn: fn, ptr: ptr, props: props})
}

// NamedComponent is Component with an explicit name for logs and errors.
func NamedComponent[P any](name string, fn Render[P], props P) vdom.DynamicNode {
	ptr := reflect.ValueOf(fn).Pointer()
	return vdom.ComponentNode(&component[P]{name: name, fn: fn, ptr: ptr, props: props})
}

func (c *component[P]) ComponentName() string { return c.name }

func (c *component[P]) RenderFunc() uintptr { return c.ptr }

func (c *component[P]) Memoize(other vdom.Component) bool {
	o, ok := other.(*component[P])
	if !ok || o.ptr != c.ptr {
		return false
	}
	if m, ok := any(c.props).(Memoizer[P]); ok {
		return m.Memoize(o.props)
	}
	return reflect.DeepEqual(c.props, o.props)
}

func (c *component[P]) render(s *Scope) (*vdom.VNode, error) {
	return c.fn(s, c.props)
}

// funcName trims a runtime function name to its last identifier.
func funcName(ptr uintptr) string {
	f := runtime.FuncForPC(ptr)
	if f == nil {
		return "Component"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
