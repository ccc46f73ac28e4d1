package render

import (
	"fmt"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// NodeKind is the kind of a document node.
type NodeKind uint8

const (
	ElementNode NodeKind = iota
	TextNode
	PlaceholderNode
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case PlaceholderNode:
		return "Placeholder"
	default:
		return "Unknown"
	}
}

// Attr is an attribute set on a document element.
type Attr struct {
	Name      string
	Namespace string
	Value     vdom.AttrValue
}

// Node is a node of a Document.
type Node struct {
	Kind      NodeKind
	Tag       string
	Namespace string
	Text      string
	ID        vdom.ElementID

	Attrs     []Attr
	Listeners map[string]bool

	Parent   *Node
	Children []*Node
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (vdom.AttrValue, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return vdom.AttrValue{}, false
}

func (n *Node) setAttr(name, namespace string, v vdom.AttrValue) {
	for i, a := range n.Attrs {
		if a.Name == name && a.Namespace == namespace {
			if v.Kind == vdom.AttrNone {
				n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			} else {
				n.Attrs[i].Value = v
			}
			return
		}
	}
	if v.Kind != vdom.AttrNone {
		n.Attrs = append(n.Attrs, Attr{Name: name, Namespace: namespace, Value: v})
	}
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	if n.Kind == TextNode {
		return n.Text
	}
	var s string
	for _, c := range n.Children {
		s += c.TextContent()
	}
	return s
}

// Walk calls fn for n and every descendant in document order until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Document is an in-memory node tree built by applying a mutation stream.
// It implements vdom.MutationSink with the same stack semantics a browser
// renderer uses, and records the first edit it could not apply.
type Document struct {
	root  *Node
	ids   map[vdom.ElementID]*Node
	stack []*Node
	err   error
}

var _ vdom.MutationSink = (*Document)(nil)

// NewDocument returns an empty document whose root container has id 0.
func NewDocument() *Document {
	root := &Node{Kind: ElementNode, Tag: "main", ID: vdom.RootElement}
	return &Document{
		root: root,
		ids:  map[vdom.ElementID]*Node{vdom.RootElement: root},
	}
}

// Root returns the root container.
func (d *Document) Root() *Node { return d.root }

// Err returns the first edit that could not be applied.
func (d *Document) Err() error { return d.err }

// StackDepth returns the number of nodes on the edit stack. It is zero
// after every complete batch.
func (d *Document) StackDepth() int { return len(d.stack) }

// Node returns the node with id.
func (d *Document) Node(id vdom.ElementID) (*Node, bool) {
	n, ok := d.ids[id]
	return n, ok
}

// IDs returns the number of ids the document knows, including the root.
func (d *Document) IDs() int { return len(d.ids) }

// Apply applies a batch of edits.
func (d *Document) Apply(edits []vdom.Mutation) error {
	for _, m := range edits {
		vdom.Apply(d, m)
		if d.err != nil {
			return d.err
		}
	}
	return nil
}

func (d *Document) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("render: "+format, args...)
	}
}

func (d *Document) lookup(op string, id vdom.ElementID) *Node {
	n, ok := d.ids[id]
	if !ok {
		d.fail("%s: unknown id %d", op, id)
		return nil
	}
	return n
}

func (d *Document) push(n *Node) { d.stack = append(d.stack, n) }

func (d *Document) pop(op string, m int) []*Node {
	if m < 0 || m > len(d.stack) {
		d.fail("%s: pop %d with stack depth %d", op, m, len(d.stack))
		return nil
	}
	out := make([]*Node, m)
	copy(out, d.stack[len(d.stack)-m:])
	d.stack = d.stack[:len(d.stack)-m]
	return out
}

func (d *Document) top(op string) *Node {
	if len(d.stack) == 0 {
		d.fail("%s: empty stack", op)
		return nil
	}
	return d.stack[len(d.stack)-1]
}

func (d *Document) nodeAt(op string, base *Node, path []uint8) *Node {
	n := base
	for _, i := range path {
		if int(i) >= len(n.Children) {
			d.fail("%s: path %v out of range", op, path)
			return nil
		}
		n = n.Children[i]
	}
	return n
}

func (d *Document) assign(n *Node, id vdom.ElementID) {
	n.ID = id
	d.ids[id] = n
}

// forget drops the ids of n's subtree.
func (d *Document) forget(n *Node) {
	n.Walk(func(c *Node) bool {
		if c.ID != vdom.RootElement && d.ids[c.ID] == c {
			delete(d.ids, c.ID)
		}
		return true
	})
}

func detach(n *Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// insertAt places nodes into parent at index i.
func insertAt(parent *Node, i int, nodes []*Node) {
	tail := append([]*Node(nil), parent.Children[i:]...)
	parent.Children = append(parent.Children[:i], nodes...)
	parent.Children = append(parent.Children, tail...)
	for _, n := range nodes {
		n.Parent = parent
	}
}

func indexOf(n *Node) int {
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// replace puts nodes where target is and drops target.
func (d *Document) replace(op string, target *Node, nodes []*Node) {
	if target.Parent == nil {
		d.fail("%s: node %d is detached", op, target.ID)
		return
	}
	for _, n := range nodes {
		detach(n)
	}
	parent := target.Parent
	i := indexOf(target)
	detach(target)
	insertAt(parent, i, nodes)
	d.forget(target)
}

func (d *Document) insertBeside(op string, id vdom.ElementID, m int, after bool) {
	nodes := d.pop(op, m)
	anchor := d.lookup(op, id)
	if anchor == nil || nodes == nil {
		return
	}
	if anchor.Parent == nil {
		d.fail("%s: anchor %d is detached", op, id)
		return
	}
	for _, n := range nodes {
		detach(n)
	}
	i := indexOf(anchor)
	if after {
		i++
	}
	insertAt(anchor.Parent, i, nodes)
}

func cloneTemplateNode(t *vdom.TemplateNode) *Node {
	switch t.Kind {
	case vdom.TemplateText:
		return &Node{Kind: TextNode, Text: t.Text}
	case vdom.TemplateDynamic:
		return &Node{Kind: PlaceholderNode}
	}
	n := &Node{Kind: ElementNode, Tag: t.Tag, Namespace: t.Namespace}
	for _, a := range t.Attrs {
		if !a.Dynamic {
			n.Attrs = append(n.Attrs, Attr{Name: a.Name, Namespace: a.Namespace,
				Value: vdom.AttrValue{Kind: vdom.AttrText, Text: a.Value}})
		}
	}
	for i := range t.Children {
		c := cloneTemplateNode(&t.Children[i])
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

func (d *Document) AppendChildren(id vdom.ElementID, m int) {
	nodes := d.pop("AppendChildren", m)
	parent := d.lookup("AppendChildren", id)
	if parent == nil || nodes == nil {
		return
	}
	for _, n := range nodes {
		detach(n)
	}
	insertAt(parent, len(parent.Children), nodes)
}

func (d *Document) AssignNodeID(path []uint8, id vdom.ElementID) {
	if base := d.top("AssignNodeID"); base != nil {
		if n := d.nodeAt("AssignNodeID", base, path); n != nil {
			d.assign(n, id)
		}
	}
}

func (d *Document) CreatePlaceholder(id vdom.ElementID) {
	n := &Node{Kind: PlaceholderNode}
	d.assign(n, id)
	d.push(n)
}

func (d *Document) CreateTextNode(value string, id vdom.ElementID) {
	n := &Node{Kind: TextNode, Text: value}
	d.assign(n, id)
	d.push(n)
}

func (d *Document) HydrateText(path []uint8, value string, id vdom.ElementID) {
	base := d.top("HydrateText")
	if base == nil {
		return
	}
	n := d.nodeAt("HydrateText", base, path)
	if n == nil {
		return
	}
	n.Kind = TextNode
	n.Text = value
	d.assign(n, id)
}

func (d *Document) LoadTemplate(t *vdom.Template, index int, id vdom.ElementID) {
	if t == nil || index < 0 || index >= len(t.Roots) {
		d.fail("LoadTemplate: bad template root %d", index)
		return
	}
	n := cloneTemplateNode(&t.Roots[index])
	d.assign(n, id)
	d.push(n)
}

func (d *Document) ReplaceNodeWith(id vdom.ElementID, m int) {
	nodes := d.pop("ReplaceNodeWith", m)
	target := d.lookup("ReplaceNodeWith", id)
	if target == nil || nodes == nil {
		return
	}
	d.replace("ReplaceNodeWith", target, nodes)
}

func (d *Document) ReplacePlaceholder(path []uint8, m int) {
	nodes := d.pop("ReplacePlaceholder", m)
	base := d.top("ReplacePlaceholder")
	if base == nil || nodes == nil {
		return
	}
	target := d.nodeAt("ReplacePlaceholder", base, path)
	if target == nil {
		return
	}
	d.replace("ReplacePlaceholder", target, nodes)
}

func (d *Document) InsertNodesAfter(id vdom.ElementID, m int) {
	d.insertBeside("InsertNodesAfter", id, m, true)
}

func (d *Document) InsertNodesBefore(id vdom.ElementID, m int) {
	d.insertBeside("InsertNodesBefore", id, m, false)
}

func (d *Document) SetAttribute(name, namespace string, value vdom.AttrValue, id vdom.ElementID) {
	if n := d.lookup("SetAttribute", id); n != nil {
		n.setAttr(name, namespace, value)
	}
}

func (d *Document) SetNodeText(value string, id vdom.ElementID) {
	if n := d.lookup("SetNodeText", id); n != nil {
		n.Text = value
	}
}

func (d *Document) CreateEventListener(name string, id vdom.ElementID) {
	if n := d.lookup("CreateEventListener", id); n != nil {
		if n.Listeners == nil {
			n.Listeners = make(map[string]bool)
		}
		n.Listeners[name] = true
	}
}

func (d *Document) RemoveEventListener(name string, id vdom.ElementID) {
	if n := d.lookup("RemoveEventListener", id); n != nil {
		delete(n.Listeners, name)
	}
}

func (d *Document) RemoveNode(id vdom.ElementID) {
	n := d.lookup("RemoveNode", id)
	if n == nil {
		return
	}
	detach(n)
	d.forget(n)
}

func (d *Document) PushRoot(id vdom.ElementID) {
	if n := d.lookup("PushRoot", id); n != nil {
		d.push(n)
	}
}

func (d *Document) PopRoot() {
	d.pop("PopRoot", 1)
}
