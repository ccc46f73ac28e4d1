package vango

import (
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// removeNode unmounts node, drops the scopes below it, and frees its element
// ids. When emit is set its roots are removed from the renderer, the last one
// being replaced by the top replaceWith stack entries if replaceWith >= 0.
// Nodes nested inside a removed element are dropped without edits.
func (rt *Runtime) removeNode(node *vdom.VNode, replaceWith int, emit bool, sink vdom.MutationSink) {
	m, ok := rt.mountOf(node)
	if !ok {
		return
	}
	cur := m.node
	t := cur.Template

	for slot, path := range t.AttrPaths {
		if len(path) > 1 {
			rt.reclaim(m.attrIDs[slot])
		}
	}
	for slot, path := range t.NodePaths {
		if len(path) > 1 {
			rt.removeDynamic(cur.DynamicNodes[slot], m.dynIDs[slot], -1, false, sink)
		}
	}

	last := len(t.Roots) - 1
	for i := range t.Roots {
		rw := -1
		if i == last {
			rw = replaceWith
		}
		if slot, dynamic := t.RootIsDynamic(i); dynamic {
			rt.removeDynamic(cur.DynamicNodes[slot], m.dynIDs[slot], rw, emit, sink)
			continue
		}
		id := m.rootIDs[i]
		if emit {
			if rw >= 0 {
				sink.ReplaceNodeWith(id, rw)
			} else {
				sink.RemoveNode(id)
			}
		}
		rt.reclaim(id)
	}

	rt.mounts.remove(uint32(cur.Mount))
	cur.Mount = 0
	node.Mount = 0
}

// removeList removes sibling nodes; only the last one is replaced.
func (rt *Runtime) removeList(nodes []*vdom.VNode, replaceWith int, emit bool, sink vdom.MutationSink) {
	for i, n := range nodes {
		rw := -1
		if i == len(nodes)-1 {
			rw = replaceWith
		}
		rt.removeNode(n, rw, emit, sink)
	}
}

// removeDynamic removes the content of a dynamic slot. id is the slot's
// element id for text and placeholders, or its scope id for components.
func (rt *Runtime) removeDynamic(d vdom.DynamicNode, id uint32, replaceWith int, emit bool, sink vdom.MutationSink) {
	switch d.EffectiveKind() {
	case vdom.DynamicText, vdom.DynamicPlaceholder:
		eid := vdom.ElementID(id)
		if emit {
			if replaceWith >= 0 {
				sink.ReplaceNodeWith(eid, replaceWith)
			} else {
				sink.RemoveNode(eid)
			}
		}
		rt.reclaim(eid)
	case vdom.DynamicFragment:
		rt.removeList(d.Children, replaceWith, emit, sink)
	case vdom.DynamicComponent:
		rt.removeComponent(ScopeID(id), replaceWith, emit, sink)
	}
}

// removeComponent removes a scope's output and then drops the scope, so
// descendants are dropped before their ancestors.
func (rt *Runtime) removeComponent(id ScopeID, replaceWith int, emit bool, sink vdom.MutationSink) {
	s, ok := rt.Scope(id)
	if !ok {
		return
	}
	if s.lastNode != nil {
		rt.removeNode(s.lastNode, replaceWith, emit, sink)
	}
	rt.dropScope(s)
}
