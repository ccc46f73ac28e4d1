package vango

import (
	"bytes"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// elementRef locates an element: a mounted VNode and a path into its
// template. A zero mount means "no element".
type elementRef struct {
	mount vdom.MountID
	path  []uint8
}

func (r elementRef) valid() bool { return r.mount.Mounted() }

// mount is the bookkeeping for one mounted VNode.
type mount struct {
	node   *vdom.VNode
	parent elementRef
	scope  ScopeID

	rootIDs []vdom.ElementID
	attrIDs []vdom.ElementID

	// dynIDs holds, per dynamic node slot, the element id of a text or
	// placeholder, or the scope id of a component.
	dynIDs []uint32
}

func (rt *Runtime) mountOf(n *vdom.VNode) (*mount, bool) {
	if n == nil || !n.Mount.Mounted() {
		return nil, false
	}
	return rt.mounts.get(uint32(n.Mount))
}

// isMounted reports whether n itself (not a VNode it superseded) is live.
func (rt *Runtime) isMounted(n *vdom.VNode) bool {
	m, ok := rt.mountOf(n)
	return ok && m.node == n
}

func (rt *Runtime) allocElement(ref elementRef) vdom.ElementID {
	return vdom.ElementID(rt.elements.insert(ref))
}

func (rt *Runtime) reclaim(id vdom.ElementID) {
	if id == vdom.RootElement {
		return
	}
	rt.elements.remove(uint32(id))
}

// isAncestorPath reports whether a is b or an ancestor of b.
func isAncestorPath(a, b []uint8) bool {
	return len(a) <= len(b) && bytes.Equal(a, b[:len(a)])
}
