package vdom

import (
	"fmt"
	"sort"
)

// DynamicKind is the kind of a DynamicNode.
type DynamicKind uint8

const (
	DynamicPlaceholder DynamicKind = iota // Empty position holder (zero value)
	DynamicText                           // Text content
	DynamicFragment                       // Ordered list of VNodes
	DynamicComponent                      // Nested component instance
)

// String returns the string representation of the DynamicKind.
func (k DynamicKind) String() string {
	switch k {
	case DynamicPlaceholder:
		return "Placeholder"
	case DynamicText:
		return "Text"
	case DynamicFragment:
		return "Fragment"
	case DynamicComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// Component is the type-erased view of a component call the diff engine
// needs: a name for diagnostics, the identity of the render function, and a
// props equality check. The runtime package provides the implementation.
type Component interface {
	// ComponentName returns a human readable name.
	ComponentName() string

	// RenderFunc returns the identity of the render function.
	RenderFunc() uintptr

	// Memoize reports whether other has the same render function and props
	// equal to this one, in which case re-rendering can be skipped.
	Memoize(other Component) bool
}

// DynamicNode fills a dynamic node slot of a template.
type DynamicNode struct {
	Kind      DynamicKind
	Text      string
	Children  []*VNode
	Component Component
}

// TextNode creates a dynamic text node.
func TextNode(s string) DynamicNode {
	return DynamicNode{Kind: DynamicText, Text: s}
}

// Textf creates a formatted dynamic text node.
func Textf(format string, args ...any) DynamicNode {
	return TextNode(fmt.Sprintf(format, args...))
}

// PlaceholderNode creates an empty dynamic node.
func PlaceholderNode() DynamicNode {
	return DynamicNode{Kind: DynamicPlaceholder}
}

// Fragment creates a dynamic list of nodes. Nil entries are dropped, and an
// empty fragment becomes a placeholder so that the position stays addressable.
func Fragment(children ...*VNode) DynamicNode {
	kept := children[:0:0]
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return PlaceholderNode()
	}
	return DynamicNode{Kind: DynamicFragment, Children: kept}
}

// ComponentNode wraps a component call as a dynamic node.
func ComponentNode(c Component) DynamicNode {
	return DynamicNode{Kind: DynamicComponent, Component: c}
}

// EffectiveKind returns the kind the diff engine treats this node as. Empty
// fragments built by hand behave as placeholders.
func (d DynamicNode) EffectiveKind() DynamicKind {
	if d.Kind == DynamicFragment && len(d.Children) == 0 {
		return DynamicPlaceholder
	}
	return d.Kind
}

// VNode is one instantiation of a template with values for its dynamic slots.
// A VNode is produced by a render and superseded by the next one; only the
// runtime writes to its Mount field.
type VNode struct {
	// Key identifies the node among keyed siblings. Empty means unkeyed.
	Key string

	Template     *Template
	DynamicNodes []DynamicNode

	// DynamicAttrs[i] holds the attributes of attribute slot i, sorted by name.
	DynamicAttrs [][]Attribute

	// Mount is assigned by the runtime while the node is mounted.
	Mount MountID
}

// NewVNode creates a VNode for t with every node slot set to a placeholder
// and every attribute slot empty.
func NewVNode(t *Template) *VNode {
	return &VNode{
		Template:     t,
		DynamicNodes: make([]DynamicNode, len(t.NodePaths)),
		DynamicAttrs: make([][]Attribute, len(t.AttrPaths)),
	}
}

// Node sets dynamic node slot i.
func (n *VNode) Node(i int, d DynamicNode) *VNode {
	n.DynamicNodes[i] = d
	return n
}

// Attr sets attribute slot i. Attributes are sorted by name; unnamed
// entries are dropped.
func (n *VNode) Attr(i int, attrs ...Attribute) *VNode {
	slot := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a.Name != "" {
			slot = append(slot, a)
		}
	}
	sort.SliceStable(slot, func(a, b int) bool { return slot[a].Name < slot[b].Name })
	n.DynamicAttrs[i] = slot
	return n
}

// WithKey sets the node's key.
func (n *VNode) WithKey(key string) *VNode {
	n.Key = key
	return n
}

// Keyf sets a formatted key.
func (n *VNode) Keyf(format string, args ...any) *VNode {
	n.Key = fmt.Sprintf(format, args...)
	return n
}

// Placeholder returns a VNode that renders nothing but keeps its position.
func Placeholder() *VNode {
	return NewVNode(placeholderTemplate)
}

// TextVNode returns a VNode that renders a single text node.
func TextVNode(s string) *VNode {
	return NewVNode(textTemplate).Node(0, TextNode(s))
}

// IsPlaceholder reports whether n is a bare placeholder VNode.
func (n *VNode) IsPlaceholder() bool {
	return n.Template == placeholderTemplate && n.DynamicNodes[0].EffectiveKind() == DynamicPlaceholder
}

// Validate checks that the slot counts match the template.
func (n *VNode) Validate() error {
	if n.Template == nil {
		return fmt.Errorf("vdom: vnode has no template")
	}
	if len(n.DynamicNodes) != len(n.Template.NodePaths) {
		return fmt.Errorf("vdom: template %q expects %d dynamic nodes, got %d",
			n.Template.Name, len(n.Template.NodePaths), len(n.DynamicNodes))
	}
	if len(n.DynamicAttrs) != len(n.Template.AttrPaths) {
		return fmt.Errorf("vdom: template %q expects %d attribute slots, got %d",
			n.Template.Name, len(n.Template.AttrPaths), len(n.DynamicAttrs))
	}
	return nil
}

// String returns a short description for debugging.
func (n *VNode) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Key != "" {
		return fmt.Sprintf("VNode{%s key=%q}", n.Template.Name, n.Key)
	}
	return fmt.Sprintf("VNode{%s}", n.Template.Name)
}
