package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vango-dev/vango-core/pkg/vdom"
)

func el(tag string, children ...*Node) *Node {
	n := &Node{Kind: ElementNode, Tag: tag}
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

func text(s string) *Node { return &Node{Kind: TextNode, Text: s} }

func TestEscape(t *testing.T) {
	tests := []struct {
		in, html, attr string
	}{
		{`<a href="x">`, "&lt;a href=&quot;x&quot;&gt;", "&lt;a href=&quot;x&quot;&gt;"},
		{"Tom & Jerry's", "Tom &amp; Jerry&#39;s", "Tom &amp; Jerry&#39;s"},
		{"a\tb\nc", "a\tb\nc", "a&#9;b&#10;c"},
	}
	for _, tt := range tests {
		if got := escapeHTML(tt.in); got != tt.html {
			t.Errorf("escapeHTML(%q) = %q, want %q", tt.in, got, tt.html)
		}
		if got := escapeAttr(tt.in); got != tt.attr {
			t.Errorf("escapeAttr(%q) = %q, want %q", tt.in, got, tt.attr)
		}
	}
}

func TestRendererAttributes(t *testing.T) {
	n := el("input")
	n.Attrs = []Attr{
		{Name: "type", Value: vdom.AttrValue{Kind: vdom.AttrText, Text: "checkbox"}},
		{Name: "checked", Value: vdom.AttrValue{Kind: vdom.AttrBool, Bool: true}},
		{Name: "disabled", Value: vdom.AttrValue{Kind: vdom.AttrBool, Bool: false}},
		{Name: "onclick", Value: vdom.AttrValue{Kind: vdom.AttrListener}},
		{Name: "href", Namespace: "xlink", Value: vdom.AttrValue{Kind: vdom.AttrText, Text: "#a"}},
		{Name: "tabindex", Value: vdom.AttrValue{Kind: vdom.AttrInt, Int: -1}},
	}
	root := el("main", n)

	want := `<input type="checkbox" checked xlink:href="#a" tabindex="-1">`
	if got := HTML(root); got != want {
		t.Errorf("HTML() = %s, want %s", got, want)
	}
}

func TestRendererText(t *testing.T) {
	root := el("main", el("p", text("1 < 2"), &Node{Kind: PlaceholderNode}))
	want := "<p>1 &lt; 2<!--placeholder--></p>"
	if got := HTML(root); got != want {
		t.Errorf("HTML() = %s, want %s", got, want)
	}
}

func TestRendererPretty(t *testing.T) {
	root := el("main", el("div", el("p", text("a"), el("b", text("bold")))))
	r := Renderer{Pretty: true}
	want := "<div>\n  <p>a<b>bold</b></p>\n</div>"
	if got := r.InnerString(root); got != want {
		t.Errorf("InnerString() = %q, want %q", got, want)
	}
}

func TestRendererIDs(t *testing.T) {
	p := el("p", text("x"))
	p.ID = 4
	root := el("main", p)
	r := Renderer{IDs: true}
	if got, want := r.InnerString(root), `<p data-vid="4">x</p>`; got != want {
		t.Errorf("InnerString() = %s, want %s", got, want)
	}
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	var r Renderer
	err := r.RenderPage(&buf, PageData{
		Title:       "Todo <demo>",
		Body:        el("main", el("h1", text("Todos"))),
		SocketPath:  "/_vango/live",
		Codec:       "cbor",
		StyleSheets: []string{"/app.css"},
	})
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>Todo &lt;demo&gt;</title>",
		`<link rel="stylesheet" href="/app.css">`,
		`<main id="vango-root" data-socket="/_vango/live" data-codec="cbor"><h1>Todos</h1></main>`,
		`<script src="/_vango/client.js" defer></script>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q:\n%s", want, html)
		}
	}
}
