package vtest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vango-core/pkg/render"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// Harness drives a runtime against a model document.
type Harness struct {
	t   testing.TB
	rt  *vango.Runtime
	doc *render.Document

	// last holds the edits of the most recent Rebuild or Render.
	last *vdom.Mutations
	all  vdom.Mutations
}

// New creates a runtime for app, rebuilds it, and applies the edits to a
// fresh document. The runtime is closed when the test ends. Logs are
// discarded unless an option sets a logger.
//
// Example:
//
//	h := vtest.New(t, Counter, CounterProps{Start: 1})
//	vtest.ExpectContains(t, h.Root(), "count: 1")
func New[P any](t testing.TB, app vango.Render[P], props P, opts ...vango.Option) *Harness {
	t.Helper()
	opts = append([]vango.Option{vango.WithLogger(DiscardLogger())}, opts...)
	h := &Harness{
		t:   t,
		rt:  vango.New(app, props, opts...),
		doc: render.NewDocument(),
	}
	t.Cleanup(func() { _ = h.rt.Close() })

	var m vdom.Mutations
	if err := h.rt.Rebuild(&m); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	h.apply(&m)
	return h
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Runtime returns the runtime under test.
func (h *Harness) Runtime() *vango.Runtime { return h.rt }

// Document returns the model document.
func (h *Harness) Document() *render.Document { return h.doc }

// Root returns the document's root container.
func (h *Harness) Root() *render.Node { return h.doc.Root() }

// Last returns the edits of the most recent Rebuild or Render.
func (h *Harness) Last() *vdom.Mutations { return h.last }

// History returns every edit applied so far.
func (h *Harness) History() *vdom.Mutations { return &h.all }

// HTML renders the document.
func (h *Harness) HTML() string { return render.HTML(h.doc.Root()) }

// Render runs RenderImmediate, applies its edits, and returns them. The test
// fails if the runtime reports an error or the document rejects an edit.
func (h *Harness) Render() *vdom.Mutations {
	h.t.Helper()
	m, err := h.TryRender()
	if err != nil {
		h.t.Fatalf("RenderImmediate() error = %v", err)
	}
	return m
}

// TryRender is Render for tests that expect the runtime to fail.
func (h *Harness) TryRender() (*vdom.Mutations, error) {
	h.t.Helper()
	var m vdom.Mutations
	err := h.rt.RenderImmediate(&m)
	h.apply(&m)
	return &m, err
}

func (h *Harness) apply(m *vdom.Mutations) {
	h.t.Helper()
	h.last = m
	for _, e := range m.Edits {
		h.all.Edits = append(h.all.Edits, e)
	}
	if err := h.doc.Apply(m.Edits); err != nil {
		h.t.Fatalf("document rejected edits: %v\nedits:\n%s", err, strings.Join(m.Strings(), "\n"))
	}
	if d := h.doc.StackDepth(); d != 0 {
		h.t.Fatalf("edit stack holds %d nodes after a batch", d)
	}
}

// Dispatch delivers an event without rendering.
func (h *Harness) Dispatch(id vdom.ElementID, name string, data any) vango.DispatchResult {
	return h.rt.Dispatch(id, name, data)
}

// Fire delivers an event to the first element carrying attribute name=value
// and renders.
//
// Example:
//
//	h.Fire("click", "id", "inc")
func (h *Harness) Fire(event, attr, value string) vango.DispatchResult {
	h.t.Helper()
	res := h.Dispatch(h.ID(attr, value), event, nil)
	h.Render()
	return res
}

// Click is Fire for click events on an element with the given id attribute.
func (h *Harness) Click(id string) vango.DispatchResult {
	h.t.Helper()
	return h.Fire("click", "id", id)
}

// Find returns the first node carrying attribute name=value.
func (h *Harness) Find(attr, value string) *render.Node {
	return FindAttr(h.doc.Root(), attr, value)
}

// ID returns the element id of the first node carrying attribute name=value.
// The test fails if there is none or the runtime never addressed it.
func (h *Harness) ID(attr, value string) vdom.ElementID {
	h.t.Helper()
	n := h.Find(attr, value)
	if n == nil {
		h.t.Fatalf("no element with %s=%q in:\n%s", attr, value, truncate(h.HTML(), 500))
	}
	if n.ID == vdom.RootElement {
		h.t.Fatalf("element with %s=%q has no id", attr, value)
	}
	return n.ID
}

// Await waits for every pending task to finish, rendering as results arrive.
func (h *Harness) Await(timeout time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for h.rt.PendingTasks() > 0 {
		if err := h.rt.WaitForWork(ctx); err != nil {
			h.t.Fatalf("waiting for %d tasks: %v", h.rt.PendingTasks(), err)
		}
		h.Render()
	}
}

// FindAttr returns the first node below n carrying attribute name=value.
func FindAttr(n *render.Node, attr, value string) *render.Node {
	var found *render.Node
	n.Walk(func(c *render.Node) bool {
		if v, ok := c.Attr(attr); ok && v.String() == value {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindTag returns every element below n with tag.
func FindTag(n *render.Node, tag string) []*render.Node {
	var out []*render.Node
	n.Walk(func(c *render.Node) bool {
		if c.Kind == render.ElementNode && c.Tag == tag {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ExpectContains asserts that the HTML of n's children contains expected.
//
// Example:
//
//	vtest.ExpectContains(t, h.Root(), "Welcome")
func ExpectContains(t testing.TB, n *render.Node, expected string) {
	t.Helper()
	html := render.HTML(n)
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the HTML of n's children does not contain
// unexpected.
func ExpectNotContains(t testing.TB, n *render.Node, unexpected string) {
	t.Helper()
	html := render.HTML(n)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectHTML asserts that the HTML of n's children is exactly want.
func ExpectHTML(t testing.TB, n *render.Node, want string) {
	t.Helper()
	if diff := cmp.Diff(want, render.HTML(n)); diff != "" {
		t.Errorf("HTML mismatch (-want +got):\n%s", diff)
	}
}

// ExpectAttribute asserts that the first element with tag carries attr=value.
func ExpectAttribute(t testing.TB, n *render.Node, tag, attr, value string) {
	t.Helper()
	els := FindTag(n, tag)
	if len(els) == 0 {
		t.Errorf("expected a <%s> element, got:\n%s", tag, truncate(render.HTML(n), 500))
		return
	}
	v, ok := els[0].Attr(attr)
	if !ok || v.String() != value {
		t.Errorf("<%s> %s = %q (present %v), want %q", tag, attr, v.String(), ok, value)
	}
}

// ExpectEdits asserts that m holds exactly the given edits, compared by
// their String form.
//
// Example:
//
//	vtest.ExpectEdits(t, h.Render(),
//	    `SetNodeText{value: "2", id: 3}`,
//	)
func ExpectEdits(t testing.TB, m *vdom.Mutations, want ...string) {
	t.Helper()
	got := m.Strings()
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
