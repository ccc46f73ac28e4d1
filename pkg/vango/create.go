package vango

import (
	"bytes"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// createNode mounts node under parent and emits the edits that leave its
// roots on the renderer's stack. It returns the number of roots pushed.
//
// For each static root the template is loaded, the root's dynamic attributes
// are written in document order, and then its nested dynamic nodes are
// filled in reverse document order so that replacing one placeholder never
// shifts the path of a placeholder still to be filled.
func (rt *Runtime) createNode(node *vdom.VNode, parent elementRef, sink vdom.MutationSink) int {
	if err := node.Validate(); err != nil {
		rt.invariant("%v", err)
		return 0
	}
	if rt.isMounted(node) {
		rt.invariant("vnode %s is already mounted", node)
		return 0
	}

	t := node.Template
	m := &mount{
		node:    node,
		parent:  parent,
		rootIDs: make([]vdom.ElementID, len(t.Roots)),
		attrIDs: make([]vdom.ElementID, len(t.AttrPaths)),
		dynIDs:  make([]uint32, len(t.NodePaths)),
	}
	if s := rt.currentScope(); s != nil {
		m.scope = s.id
	}
	mid := vdom.MountID(rt.mounts.insert(m))
	node.Mount = mid

	n := 0
	for i := range t.Roots {
		if slot, ok := t.RootIsDynamic(i); ok {
			n += rt.createDynamic(node, m, slot, sink)
			continue
		}
		id := rt.allocElement(elementRef{mount: mid, path: []uint8{uint8(i)}})
		m.rootIDs[i] = id
		sink.LoadTemplate(t, i, id)
		rt.writeAttrs(node, m, i, sink)
		rt.fillSlots(node, m, i, sink)
		n++
	}
	return n
}

func (rt *Runtime) createChildren(nodes []*vdom.VNode, parent elementRef, sink vdom.MutationSink) int {
	n := 0
	for _, c := range nodes {
		n += rt.createNode(c, parent, sink)
	}
	return n
}

// writeAttrs assigns ids to the elements under root that carry dynamic
// attributes and writes their values.
func (rt *Runtime) writeAttrs(node *vdom.VNode, m *mount, root int, sink vdom.MutationSink) {
	t := node.Template
	var lastPath []uint8
	var lastID vdom.ElementID
	for _, slot := range t.AttrSlots(root) {
		path := t.AttrPaths[slot]
		var id vdom.ElementID
		switch {
		case len(path) == 1:
			id = m.rootIDs[root]
		case lastPath != nil && bytes.Equal(path, lastPath):
			id = lastID
		default:
			id = rt.allocElement(elementRef{mount: node.Mount, path: path})
			sink.AssignNodeID(path[1:], id)
		}
		lastPath, lastID = path, id
		m.attrIDs[slot] = id
		for _, a := range node.DynamicAttrs[slot] {
			writeAttr(a, id, sink)
		}
	}
}

func writeAttr(a vdom.Attribute, id vdom.ElementID, sink vdom.MutationSink) {
	if a.IsListener() {
		sink.CreateEventListener(a.EventName(), id)
		return
	}
	if a.Value.Kind == vdom.AttrNone {
		return
	}
	sink.SetAttribute(a.Name, a.Namespace, a.Value, id)
}

// fillSlots materialises the dynamic nodes nested under root.
func (rt *Runtime) fillSlots(node *vdom.VNode, m *mount, root int, sink vdom.MutationSink) {
	t := node.Template
	slots := t.NestedNodeSlots(root)
	for i := len(slots) - 1; i >= 0; i-- {
		slot := slots[i]
		path := t.NodePaths[slot]
		d := node.DynamicNodes[slot]
		switch d.EffectiveKind() {
		case vdom.DynamicText:
			id := rt.allocElement(elementRef{mount: node.Mount, path: path})
			m.dynIDs[slot] = uint32(id)
			sink.HydrateText(path[1:], d.Text, id)
		case vdom.DynamicPlaceholder:
			id := rt.allocElement(elementRef{mount: node.Mount, path: path})
			m.dynIDs[slot] = uint32(id)
			sink.AssignNodeID(path[1:], id)
		default:
			if n := rt.createDynamic(node, m, slot, sink); n > 0 {
				sink.ReplacePlaceholder(path[1:], n)
			}
		}
	}
}

// createDynamic creates dynamic node slot on its own, leaving its nodes on
// the stack.
func (rt *Runtime) createDynamic(node *vdom.VNode, m *mount, slot int, sink vdom.MutationSink) int {
	path := node.Template.NodePaths[slot]
	ref := elementRef{mount: node.Mount, path: path}
	d := node.DynamicNodes[slot]
	switch d.EffectiveKind() {
	case vdom.DynamicText:
		id := rt.allocElement(ref)
		m.dynIDs[slot] = uint32(id)
		sink.CreateTextNode(d.Text, id)
		return 1
	case vdom.DynamicPlaceholder:
		id := rt.allocElement(ref)
		m.dynIDs[slot] = uint32(id)
		sink.CreatePlaceholder(id)
		return 1
	case vdom.DynamicFragment:
		return rt.createChildren(d.Children, ref, sink)
	case vdom.DynamicComponent:
		return rt.createComponent(d.Component, m, ref, slot, sink)
	}
	return 0
}

// createComponent creates a scope for c, runs it, and creates its output.
func (rt *Runtime) createComponent(c vdom.Component, m *mount, parent elementRef, slot int, sink vdom.MutationSink) int {
	comp, ok := c.(renderable)
	if !ok {
		rt.invariant("component %s was not built with vango.Component", c.ComponentName())
		return 0
	}
	s := rt.newScope(rt.currentScope(), comp)
	m.dynIDs[slot] = uint32(s.id)

	node := rt.runScope(s)
	rt.pushScope(s.id)
	n := rt.createNode(node, parent, sink)
	rt.popScope()
	s.lastNode = node
	return n
}

func (rt *Runtime) createAndInsertAfter(nodes []*vdom.VNode, after *vdom.VNode, parent elementRef, sink vdom.MutationSink) {
	anchor := rt.lastElement(after)
	n := rt.createChildren(nodes, parent, sink)
	sink.InsertNodesAfter(anchor, n)
}

func (rt *Runtime) createAndInsertBefore(nodes []*vdom.VNode, before *vdom.VNode, parent elementRef, sink vdom.MutationSink) {
	anchor := rt.firstElement(before)
	n := rt.createChildren(nodes, parent, sink)
	sink.InsertNodesBefore(anchor, n)
}
