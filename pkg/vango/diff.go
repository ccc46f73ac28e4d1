package vango

import (
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// diffNode updates the mounted node old to look like next. When the templates
// differ next is created and replaces old; otherwise next takes over old's
// mount and only changed slots produce edits.
func (rt *Runtime) diffNode(old, next *vdom.VNode, sink vdom.MutationSink) {
	if old == next || rt.fatal != nil {
		return
	}
	m, ok := rt.mountOf(old)
	if !ok {
		rt.invariant("diff of unmounted vnode %s", old)
		return
	}
	if err := next.Validate(); err != nil {
		rt.invariant("%v", err)
		return
	}
	if old.Template != next.Template {
		n := rt.createNode(next, m.parent, sink)
		rt.removeNode(old, n, true, sink)
		return
	}

	next.Mount = old.Mount
	m.node = next
	rt.diffAttrs(old, next, m, sink)
	for slot := range next.DynamicNodes {
		rt.diffDynamic(old, next, m, slot, sink)
	}
}

// diffAttrs merges the name-sorted attribute lists of every slot.
func (rt *Runtime) diffAttrs(old, next *vdom.VNode, m *mount, sink vdom.MutationSink) {
	for slot := range next.DynamicAttrs {
		id := m.attrIDs[slot]
		oa, na := old.DynamicAttrs[slot], next.DynamicAttrs[slot]
		i, j := 0, 0
		for i < len(oa) || j < len(na) {
			switch {
			case j >= len(na) || (i < len(oa) && oa[i].Name < na[j].Name):
				removeAttr(oa[i], id, sink)
				i++
			case i >= len(oa) || na[j].Name < oa[i].Name:
				writeAttr(na[j], id, sink)
				j++
			default:
				updateAttr(oa[i], na[j], id, sink)
				i++
				j++
			}
		}
	}
}

func removeAttr(a vdom.Attribute, id vdom.ElementID, sink vdom.MutationSink) {
	if a.IsListener() {
		sink.RemoveEventListener(a.EventName(), id)
		return
	}
	if a.Value.Kind != vdom.AttrNone {
		sink.SetAttribute(a.Name, a.Namespace, vdom.AttrValue{}, id)
	}
}

func updateAttr(o, n vdom.Attribute, id vdom.ElementID, sink vdom.MutationSink) {
	switch {
	case o.IsListener() && n.IsListener():
		// The listener is read at dispatch time.
	case o.IsListener():
		sink.RemoveEventListener(o.EventName(), id)
		writeAttr(n, id, sink)
	case n.IsListener():
		removeAttr(o, id, sink)
		sink.CreateEventListener(n.EventName(), id)
	case n.Volatile || o.Namespace != n.Namespace || !o.Value.Equal(n.Value):
		sink.SetAttribute(n.Name, n.Namespace, n.Value, id)
	}
}

func (rt *Runtime) diffDynamic(old, next *vdom.VNode, m *mount, slot int, sink vdom.MutationSink) {
	o, n := old.DynamicNodes[slot], next.DynamicNodes[slot]
	kind := o.EffectiveKind()
	switch {
	case kind != n.EffectiveKind():
		rt.replaceDynamic(o, next, m, slot, sink)
	case kind == vdom.DynamicText:
		if o.Text != n.Text {
			sink.SetNodeText(n.Text, vdom.ElementID(m.dynIDs[slot]))
		}
	case kind == vdom.DynamicPlaceholder:
	case kind == vdom.DynamicFragment:
		ref := elementRef{mount: next.Mount, path: next.Template.NodePaths[slot]}
		rt.diffChildren(o.Children, n.Children, ref, sink)
	case kind == vdom.DynamicComponent:
		rt.diffComponent(o, next, m, slot, sink)
	}
}

// replaceDynamic swaps the content of a slot whose kind changed.
func (rt *Runtime) replaceDynamic(o vdom.DynamicNode, next *vdom.VNode, m *mount, slot int, sink vdom.MutationSink) {
	oldID := m.dynIDs[slot]
	n := rt.createDynamic(next, m, slot, sink)
	rt.removeDynamic(o, oldID, n, true, sink)
}

func (rt *Runtime) diffComponent(o vdom.DynamicNode, next *vdom.VNode, m *mount, slot int, sink vdom.MutationSink) {
	nc := next.DynamicNodes[slot].Component
	sid := ScopeID(m.dynIDs[slot])
	s, ok := rt.Scope(sid)
	if !ok {
		rt.invariant("component slot %d refers to missing scope %d", slot, sid)
		return
	}
	if o.Component.RenderFunc() != nc.RenderFunc() {
		rt.replaceDynamic(o, next, m, slot, sink)
		return
	}
	if s.comp.Memoize(nc) {
		return
	}
	comp, ok := nc.(renderable)
	if !ok {
		rt.invariant("component %s was not built with vango.Component", nc.ComponentName())
		return
	}
	s.comp = comp
	rt.rerunScope(sid, sink)
}

// diffChildren reconciles two non-empty sibling lists. Lists whose items all
// carry distinct keys are matched by key; anything else by position.
func (rt *Runtime) diffChildren(old, next []*vdom.VNode, parent elementRef, sink vdom.MutationSink) {
	if len(old) == 0 || len(next) == 0 {
		rt.invariant("fragment diff with an empty side")
		return
	}
	oldKeyed, oldOK := keyedList(old)
	newKeyed, newOK := keyedList(next)
	if oldKeyed && newKeyed && oldOK && newOK {
		rt.diffKeyed(old, next, parent, sink)
		return
	}
	if (oldKeyed || newKeyed) && (!oldOK || !newOK) {
		rt.logger.Warn("sibling keys are missing or duplicated, matching by position",
			"first", next[0].String())
	}
	rt.diffUnkeyed(old, next, parent, sink)
}

// keyedList reports whether any item has a key, and whether all items have
// distinct non-empty keys.
func keyedList(nodes []*vdom.VNode) (anyKey, valid bool) {
	seen := make(map[string]struct{}, len(nodes))
	valid = true
	for _, n := range nodes {
		if n.Key == "" {
			valid = false
			continue
		}
		anyKey = true
		if _, dup := seen[n.Key]; dup {
			valid = false
		}
		seen[n.Key] = struct{}{}
	}
	return anyKey, valid
}

func (rt *Runtime) diffUnkeyed(old, next []*vdom.VNode, parent elementRef, sink vdom.MutationSink) {
	switch {
	case len(old) > len(next):
		rt.removeList(old[len(next):], -1, true, sink)
	case len(next) > len(old):
		rt.createAndInsertAfter(next[len(old):], old[len(old)-1], parent, sink)
	}
	for i := 0; i < min(len(old), len(next)); i++ {
		rt.diffNode(old[i], next[i], sink)
	}
}

// firstElement returns the id of the first renderer node of a mounted VNode.
func (rt *Runtime) firstElement(n *vdom.VNode) vdom.ElementID {
	m, ok := rt.mountOf(n)
	if !ok {
		rt.invariant("first element of unmounted vnode %s", n)
		return vdom.RootElement
	}
	node := m.node
	slot, dynamic := node.Template.RootIsDynamic(0)
	if !dynamic {
		return m.rootIDs[0]
	}
	d := node.DynamicNodes[slot]
	switch d.EffectiveKind() {
	case vdom.DynamicFragment:
		return rt.firstElement(d.Children[0])
	case vdom.DynamicComponent:
		if s, ok := rt.Scope(ScopeID(m.dynIDs[slot])); ok {
			return rt.firstElement(s.lastNode)
		}
		return vdom.RootElement
	default:
		return vdom.ElementID(m.dynIDs[slot])
	}
}

// lastElement returns the id of the last renderer node of a mounted VNode.
func (rt *Runtime) lastElement(n *vdom.VNode) vdom.ElementID {
	m, ok := rt.mountOf(n)
	if !ok {
		rt.invariant("last element of unmounted vnode %s", n)
		return vdom.RootElement
	}
	node := m.node
	last := len(node.Template.Roots) - 1
	slot, dynamic := node.Template.RootIsDynamic(last)
	if !dynamic {
		return m.rootIDs[last]
	}
	d := node.DynamicNodes[slot]
	switch d.EffectiveKind() {
	case vdom.DynamicFragment:
		return rt.lastElement(d.Children[len(d.Children)-1])
	case vdom.DynamicComponent:
		if s, ok := rt.Scope(ScopeID(m.dynIDs[slot])); ok {
			return rt.lastElement(s.lastNode)
		}
		return vdom.RootElement
	default:
		return vdom.ElementID(m.dynIDs[slot])
	}
}

// pushAllRoots pushes every renderer node of a mounted VNode onto the stack
// and returns how many were pushed.
func (rt *Runtime) pushAllRoots(n *vdom.VNode, sink vdom.MutationSink) int {
	m, ok := rt.mountOf(n)
	if !ok {
		rt.invariant("push of unmounted vnode %s", n)
		return 0
	}
	node := m.node
	count := 0
	for i := range node.Template.Roots {
		slot, dynamic := node.Template.RootIsDynamic(i)
		if !dynamic {
			sink.PushRoot(m.rootIDs[i])
			count++
			continue
		}
		d := node.DynamicNodes[slot]
		switch d.EffectiveKind() {
		case vdom.DynamicFragment:
			for _, c := range d.Children {
				count += rt.pushAllRoots(c, sink)
			}
		case vdom.DynamicComponent:
			if s, ok := rt.Scope(ScopeID(m.dynIDs[slot])); ok {
				count += rt.pushAllRoots(s.lastNode, sink)
			}
		default:
			sink.PushRoot(vdom.ElementID(m.dynIDs[slot]))
			count++
		}
	}
	return count
}
