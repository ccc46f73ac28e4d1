package vdom

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// TemplateKind is the kind of a static template node.
type TemplateKind uint8

const (
	TemplateElement TemplateKind = iota // An element with static attributes and children
	TemplateText                        // Static text
	TemplateDynamic                     // A hole filled by a DynamicNode
)

// String returns the string representation of the TemplateKind.
func (k TemplateKind) String() string {
	switch k {
	case TemplateElement:
		return "Element"
	case TemplateText:
		return "Text"
	case TemplateDynamic:
		return "Dynamic"
	default:
		return "Unknown"
	}
}

// TemplateAttr is a static attribute or a dynamic attribute slot on a
// template element.
type TemplateAttr struct {
	Name      string
	Value     string
	Namespace string

	// Dynamic marks this entry as attribute slot Slot rather than a static
	// name/value pair.
	Dynamic bool
	Slot    int
}

// TemplateNode is one node of a template's static forest.
type TemplateNode struct {
	Kind      TemplateKind
	Tag       string
	Namespace string
	Attrs     []TemplateAttr
	Children  []TemplateNode

	// Text is the content of a TemplateText node.
	Text string

	// Slot is the dynamic node index of a TemplateDynamic node.
	Slot int
}

// Template is the immutable static shape of a UI call site.
type Template struct {
	// Name identifies the template in logs and on the wire. Names should be
	// unique within a program.
	Name string

	// Roots are the top-level nodes of the template.
	Roots []TemplateNode

	// NodePaths[i] is the path to dynamic node slot i. The first byte is the
	// root index, the following bytes are child indices.
	NodePaths [][]uint8

	// AttrPaths[i] is the path to the element carrying dynamic attribute slot i.
	AttrPaths [][]uint8

	// Per root, the attribute slots and the nested node slots in document order.
	rootAttrs [][]int
	rootNodes [][]int

	// Attribute slots ordered deepest element first. Slots on one element
	// keep their declaration order.
	bubbleAttrs []int

	fingerprint uint64
}

// El creates a template element. Arguments may be TemplateAttr values
// (static attributes or DynAttr slots), TemplateNode values (children), or
// strings (static text children).
func El(tag string, args ...any) TemplateNode {
	n := TemplateNode{Kind: TemplateElement, Tag: tag}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case TemplateAttr:
			n.Attrs = append(n.Attrs, v)
		case []TemplateAttr:
			n.Attrs = append(n.Attrs, v...)
		case TemplateNode:
			n.Children = append(n.Children, v)
		case []TemplateNode:
			n.Children = append(n.Children, v...)
		case string:
			n.Children = append(n.Children, Text(v))
		default:
			panic(fmt.Sprintf("vdom: unsupported template argument %T", arg))
		}
	}
	return n
}

// ElNS creates a namespaced template element, e.g. for SVG.
func ElNS(tag, namespace string, args ...any) TemplateNode {
	n := El(tag, args...)
	n.Namespace = namespace
	return n
}

// Text creates a static template text node.
func Text(s string) TemplateNode {
	return TemplateNode{Kind: TemplateText, Text: s}
}

// Dyn creates dynamic node slot i.
func Dyn(i int) TemplateNode {
	return TemplateNode{Kind: TemplateDynamic, Slot: i}
}

// Attr creates a static template attribute.
func Attr(name, value string) TemplateAttr {
	return TemplateAttr{Name: name, Value: value}
}

// DynAttr creates dynamic attribute slot i on the enclosing element.
func DynAttr(i int) TemplateAttr {
	return TemplateAttr{Dynamic: true, Slot: i}
}

// NewTemplate builds a template and computes its slot paths. It panics if the
// slots are not numbered 0..n-1 with each index used exactly once, or if the
// template is deeper or wider than a path byte can address. Templates are
// meant to be package-level variables built at init time.
func NewTemplate(name string, roots ...TemplateNode) *Template {
	if len(roots) == 0 {
		panic(fmt.Sprintf("vdom: template %q has no roots", name))
	}
	if len(roots) > 255 {
		panic(fmt.Sprintf("vdom: template %q has too many roots", name))
	}

	t := &Template{
		Name:      name,
		Roots:     roots,
		rootAttrs: make([][]int, len(roots)),
		rootNodes: make([][]int, len(roots)),
	}
	nodes := map[int][]uint8{}
	attrs := map[int][]uint8{}

	var walk func(n *TemplateNode, path []uint8)
	walk = func(n *TemplateNode, path []uint8) {
		switch n.Kind {
		case TemplateDynamic:
			if _, dup := nodes[n.Slot]; dup {
				panic(fmt.Sprintf("vdom: template %q uses node slot %d twice", name, n.Slot))
			}
			nodes[n.Slot] = clonePath(path)
			if len(path) > 1 {
				t.rootNodes[path[0]] = append(t.rootNodes[path[0]], n.Slot)
			}
		case TemplateElement:
			for _, a := range n.Attrs {
				if !a.Dynamic {
					continue
				}
				if _, dup := attrs[a.Slot]; dup {
					panic(fmt.Sprintf("vdom: template %q uses attribute slot %d twice", name, a.Slot))
				}
				attrs[a.Slot] = clonePath(path)
				t.rootAttrs[path[0]] = append(t.rootAttrs[path[0]], a.Slot)
			}
			if len(n.Children) > 255 {
				panic(fmt.Sprintf("vdom: template %q element <%s> has too many children", name, n.Tag))
			}
			for i := range n.Children {
				walk(&n.Children[i], append(path, uint8(i)))
			}
		}
	}
	for i := range t.Roots {
		walk(&t.Roots[i], []uint8{uint8(i)})
	}

	t.NodePaths = collectPaths(name, "node", nodes)
	t.AttrPaths = collectPaths(name, "attribute", attrs)
	for _, slots := range t.rootAttrs {
		t.bubbleAttrs = append(t.bubbleAttrs, slots...)
	}
	sort.SliceStable(t.bubbleAttrs, func(i, j int) bool {
		return len(t.AttrPaths[t.bubbleAttrs[i]]) > len(t.AttrPaths[t.bubbleAttrs[j]])
	})
	t.fingerprint = fingerprint(t)
	return t
}

func collectPaths(name, what string, m map[int][]uint8) [][]uint8 {
	paths := make([][]uint8, len(m))
	for i := range paths {
		p, ok := m[i]
		if !ok {
			panic(fmt.Sprintf("vdom: template %q is missing %s slot %d", name, what, i))
		}
		paths[i] = p
	}
	return paths
}

func clonePath(p []uint8) []uint8 {
	out := make([]uint8, len(p))
	copy(out, p)
	return out
}

// Fingerprint is a stable hash of the template's name and static structure.
// Renderers use it as the cache key for templates they have already seen.
func (t *Template) Fingerprint() uint64 {
	return t.fingerprint
}

// RootIsDynamic returns the dynamic slot of root i, if root i is a hole.
func (t *Template) RootIsDynamic(i int) (slot int, ok bool) {
	r := t.Roots[i]
	if r.Kind == TemplateDynamic {
		return r.Slot, true
	}
	return 0, false
}

// AttrSlots returns the attribute slots under root i in document order.
func (t *Template) AttrSlots(i int) []int {
	return t.rootAttrs[i]
}

// BubbleSlots returns every attribute slot ordered so that, along any chain
// of nested elements, a descendant's slots come before its ancestors'.
func (t *Template) BubbleSlots() []int {
	return t.bubbleAttrs
}

// NestedNodeSlots returns the dynamic node slots strictly below root i in
// document order.
func (t *Template) NestedNodeSlots(i int) []int {
	return t.rootNodes[i]
}

// NodeAt resolves a path (including the root index) to a template node.
func (t *Template) NodeAt(path []uint8) (*TemplateNode, bool) {
	if len(path) == 0 || int(path[0]) >= len(t.Roots) {
		return nil, false
	}
	n := &t.Roots[path[0]]
	for _, i := range path[1:] {
		if int(i) >= len(n.Children) {
			return nil, false
		}
		n = &n.Children[i]
	}
	return n, true
}

func fingerprint(t *Template) uint64 {
	d := xxhash.New()
	d.WriteString(t.Name)
	var buf [8]byte
	var walk func(n *TemplateNode)
	walk = func(n *TemplateNode) {
		d.Write([]byte{byte(n.Kind)})
		switch n.Kind {
		case TemplateElement:
			d.WriteString(n.Namespace)
			d.WriteString(":")
			d.WriteString(n.Tag)
			for _, a := range n.Attrs {
				if a.Dynamic {
					binary.BigEndian.PutUint64(buf[:], uint64(a.Slot))
					d.Write(buf[:])
					continue
				}
				d.WriteString(a.Namespace)
				d.WriteString(a.Name)
				d.WriteString("=")
				d.WriteString(a.Value)
			}
			binary.BigEndian.PutUint64(buf[:], uint64(len(n.Children)))
			d.Write(buf[:])
			for i := range n.Children {
				walk(&n.Children[i])
			}
		case TemplateText:
			d.WriteString(n.Text)
		case TemplateDynamic:
			binary.BigEndian.PutUint64(buf[:], uint64(n.Slot))
			d.Write(buf[:])
		}
	}
	for i := range t.Roots {
		walk(&t.Roots[i])
	}
	return d.Sum64()
}

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// placeholderTemplate backs Placeholder VNodes: a single dynamic root.
var placeholderTemplate = NewTemplate("vango:placeholder", Dyn(0))

// textTemplate backs standalone text VNodes.
var textTemplate = NewTemplate("vango:text", Dyn(0))
