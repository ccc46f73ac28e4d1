// Package vdom defines the data model shared by the vango runtime and the
// renderers that consume its output.
//
// # Templates
//
// A Template is the static shape of one call site: a forest of elements and
// text with numbered holes. Dyn(i) marks dynamic node slot i and DynAttr(i)
// marks dynamic attribute slot i on the enclosing element. NewTemplate walks
// the roots once and records the path to every slot, so the runtime never
// walks the static part of a template again.
//
//	var card = vdom.NewTemplate("card",
//	    vdom.El("div", vdom.Attr("class", "card"), vdom.DynAttr(0),
//	        vdom.El("h2", vdom.Dyn(0)),
//	        vdom.Dyn(1),
//	    ),
//	)
//
// Templates must not be modified after NewTemplate returns; they are compared
// by pointer identity.
//
// # VNodes
//
// A VNode instantiates a template with values for its slots:
//
//	vdom.NewVNode(card).
//	    Attr(0, vdom.OnClick(func(e *vdom.Event) { ... })).
//	    Node(0, vdom.TextNode(title)).
//	    Node(1, vdom.Fragment(items...))
//
// # Mutations
//
// The runtime reports edits to a MutationSink. The sink is a stack machine:
// LoadTemplate, CreateTextNode, CreatePlaceholder and PushRoot push nodes, and
// AppendChildren, ReplaceNodeWith, ReplacePlaceholder and the Insert edits pop
// them. Mutations records a batch for transport or inspection.
package vdom
