package render

import (
	"bytes"
	"io"
	"strings"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

// PlaceholderComment is what an empty slot renders as.
const PlaceholderComment = "<!--placeholder-->"

// Renderer writes Document nodes as HTML.
type Renderer struct {
	// Pretty puts block elements on their own indented lines. Only useful
	// when a human reads the output.
	Pretty bool

	// Indent is one indentation level in pretty mode. Defaults to two spaces.
	Indent string

	// IDs adds a data-vid attribute carrying the element id to every node
	// the runtime addressed.
	IDs bool
}

// HTML renders the children of n with a zero Renderer.
func HTML(n *Node) string {
	var r Renderer
	return r.InnerString(n)
}

// String renders n itself.
func (r *Renderer) String(n *Node) string {
	var buf bytes.Buffer
	_ = r.Write(&buf, n)
	return buf.String()
}

// InnerString renders the children of n.
func (r *Renderer) InnerString(n *Node) string {
	var buf bytes.Buffer
	_ = r.WriteChildren(&buf, n)
	return strings.TrimPrefix(buf.String(), "\n")
}

// Write renders n to w.
func (r *Renderer) Write(w io.Writer, n *Node) error {
	ew := &errWriter{w: w}
	r.node(ew, n, 0)
	return ew.err
}

// WriteChildren renders the children of n to w.
func (r *Renderer) WriteChildren(w io.Writer, n *Node) error {
	ew := &errWriter{w: w}
	for _, c := range n.Children {
		r.node(ew, c, 0)
	}
	return ew.err
}

func (r *Renderer) node(w *errWriter, n *Node, depth int) {
	switch n.Kind {
	case TextNode:
		w.str(escapeHTML(n.Text))
	case PlaceholderNode:
		w.str(PlaceholderComment)
	case ElementNode:
		r.element(w, n, depth)
	}
}

func (r *Renderer) element(w *errWriter, n *Node, depth int) {
	block := r.Pretty && !isInlineElement(n.Tag)
	if block {
		r.indent(w, depth)
	}
	w.str("<")
	w.str(n.Tag)
	if r.IDs && n.ID != vdom.RootElement {
		w.str(` data-vid="`)
		w.str(n.ID.String())
		w.str(`"`)
	}
	for _, a := range n.Attrs {
		writeAttr(w, a)
	}
	w.str(">")
	if vdom.IsVoidElement(n.Tag) {
		return
	}

	childBlocks := false
	for _, c := range n.Children {
		if r.Pretty && c.Kind == ElementNode && !isInlineElement(c.Tag) {
			childBlocks = true
		}
		r.node(w, c, depth+1)
	}
	if childBlocks {
		r.indent(w, depth)
	}
	w.str("</")
	w.str(n.Tag)
	w.str(">")
}

func (r *Renderer) indent(w *errWriter, depth int) {
	ind := r.Indent
	if ind == "" {
		ind = "  "
	}
	w.str("\n")
	w.str(strings.Repeat(ind, depth))
}

func writeAttr(w *errWriter, a Attr) {
	name := a.Name
	if a.Namespace != "" {
		name = a.Namespace + ":" + a.Name
	}
	v := a.Value
	switch {
	case v.Kind == vdom.AttrNone || v.Kind == vdom.AttrListener:
		return
	case isBooleanAttr(a.Name):
		if truthy(v) {
			w.str(" ")
			w.str(name)
		}
		return
	}
	w.str(" ")
	w.str(name)
	w.str(`="`)
	w.str(escapeAttr(v.String()))
	w.str(`"`)
}

// truthy decides whether a boolean attribute is present.
func truthy(v vdom.AttrValue) bool {
	switch v.Kind {
	case vdom.AttrBool:
		return v.Bool
	case vdom.AttrText:
		return v.Text != "false"
	case vdom.AttrInt:
		return v.Int != 0
	case vdom.AttrFloat:
		return v.Float != 0
	case vdom.AttrAny:
		return v.Any != nil
	}
	return false
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) str(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}
