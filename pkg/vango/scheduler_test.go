package vango_test

import (
	"strconv"
	"testing"

	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
	"github.com/vango-dev/vango-core/pkg/vtest"
)

var (
	sectionTmpl = vdom.NewTemplate("section", vdom.El("section", vdom.Dyn(0)))
	emTmpl      = vdom.NewTemplate("em", vdom.El("em", vdom.Dyn(0)))
	slotTmpl    = vdom.NewTemplate("slot", vdom.Dyn(0))
	pairTmpl    = vdom.NewTemplate("pair", vdom.El("div", vdom.Dyn(0), vdom.Dyn(1)))
)

func slot(d vdom.DynamicNode) *vdom.VNode {
	return vdom.NewVNode(slotTmpl).Node(0, d)
}

// treeCtl drives a Parent holding a single Child.
type treeCtl struct {
	label   string
	version int
	parent  *vango.Scope
	child   *vango.Scope
}

type childProps struct {
	Label string
	ctl   *treeCtl
}

func Parent(s *vango.Scope, c *treeCtl) (*vdom.VNode, error) {
	c.parent = s
	return vdom.NewVNode(sectionTmpl).
		Node(0, vango.Component(Child, childProps{Label: c.label, ctl: c})), nil
}

func Child(s *vango.Scope, p childProps) (*vdom.VNode, error) {
	p.ctl.child = s
	return vdom.NewVNode(emTmpl).Node(0, vdom.TextNode(p.Label)), nil
}

func TestParentRendersBeforeChild(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		wantEdits []string
	}{
		{
			name:      "props changed",
			label:     "b",
			wantEdits: []string{`SetNodeText{value: "b", id: 3}`},
		},
		{
			name:  "props unchanged",
			label: "a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := &treeCtl{label: "a"}
			h := vtest.New(t, Parent, c, vango.WithObserver(rec))
			rec.reset()

			c.label = tt.label
			c.child.MarkDirty()
			c.parent.MarkDirty()
			vtest.ExpectEdits(t, h.Render(), tt.wantEdits...)

			want := []string{"Parent", "Child"}
			if len(rec.rendered) != len(want) || rec.rendered[0] != want[0] || rec.rendered[1] != want[1] {
				t.Errorf("rendered = %v, want %v", rec.rendered, want)
			}
			if got := c.child.RenderCount(); got != 2 {
				t.Errorf("child RenderCount() = %d, want 2", got)
			}
		})
	}
}

func TestMemoizedChildSkipped(t *testing.T) {
	c := &treeCtl{label: "a"}
	h := vtest.New(t, Parent, c)

	c.parent.MarkDirty()
	vtest.ExpectEdits(t, h.Render())
	if got := c.child.RenderCount(); got != 1 {
		t.Errorf("child RenderCount() = %d, want 1", got)
	}
	if got := c.parent.RenderCount(); got != 2 {
		t.Errorf("parent RenderCount() = %d, want 2", got)
	}
}

func TestPopWorkOrder(t *testing.T) {
	c := &treeCtl{label: "a"}
	h := vtest.New(t, Parent, c)
	rt := h.Runtime()

	if rt.HasWork() {
		t.Fatal("HasWork() = true after Rebuild")
	}
	rt.MarkDirty(c.child.ID())
	rt.MarkDirty(c.parent.ID())
	rt.MarkDirty(c.parent.ID())
	rt.MarkDirty(vango.ScopeID(99))

	for _, want := range []vango.ScopeID{c.parent.ID(), c.child.ID()} {
		w, ok := rt.PopWork()
		if !ok {
			t.Fatalf("PopWork() returned nothing, want scope %d", want)
		}
		if w.Kind != vango.WorkRerunScope || w.Scope != want {
			t.Errorf("PopWork() = %s scope %d, want RerunScope scope %d", w.Kind, w.Scope, want)
		}
	}
	if _, ok := rt.PopWork(); ok {
		t.Error("PopWork() returned work from an empty queue")
	}
}

// versioned compares equal whenever the versions match.
type versioned struct {
	Version int
	Noise   int
	ctl     *treeCtl
}

func (v versioned) Memoize(other versioned) bool { return v.Version == other.Version }

func Versioned(s *vango.Scope, p versioned) (*vdom.VNode, error) {
	p.ctl.child = s
	return vdom.NewVNode(emTmpl).Node(0, vdom.Textf("v%d n%d", p.Version, p.Noise)), nil
}

func TestCustomMemoizer(t *testing.T) {
	c := &treeCtl{}
	app := func(s *vango.Scope, c *treeCtl) (*vdom.VNode, error) {
		c.parent = s
		return vdom.NewVNode(sectionTmpl).
			Node(0, vango.Component(Versioned, versioned{Version: c.version, Noise: len(c.label), ctl: c})), nil
	}
	h := vtest.New(t, app, c)

	c.label = "noise"
	c.parent.MarkDirty()
	vtest.ExpectEdits(t, h.Render())
	vtest.ExpectHTML(t, h.Root(), "<section><em>v0 n0</em></section>")

	c.version = 1
	c.parent.MarkDirty()
	h.Render()
	vtest.ExpectHTML(t, h.Root(), "<section><em>v1 n5</em></section>")
	if got := c.child.RenderCount(); got != 2 {
		t.Errorf("child RenderCount() = %d, want 2", got)
	}
}

type cellProps struct {
	index int
	cells []*vango.State[int]
}

func Cell(s *vango.Scope, p cellProps) (*vdom.VNode, error) {
	n := vango.UseState(s, 0)
	p.cells[p.index] = n
	return para(strconv.Itoa(n.Get())), nil
}

func TestManyDirtyScopesConverge(t *testing.T) {
	const count = 10_001
	cells := make([]*vango.State[int], count)
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		rows := make([]*vdom.VNode, count)
		for i := range rows {
			rows[i] = slot(vango.Component(Cell, cellProps{index: i, cells: cells}))
		}
		return slot(vdom.Fragment(rows...)), nil
	}
	h := vtest.New(t, app, struct{}{}, vango.WithMaxRenderPasses(2))

	for _, c := range cells {
		c.Set(1)
	}
	m := h.Render()

	texts := 0
	for _, e := range m.Edits {
		if e.Op == vdom.OpSetNodeText {
			texts++
		}
	}
	if texts != count {
		t.Errorf("SetNodeText edits = %d, want %d", texts, count)
	}
}
