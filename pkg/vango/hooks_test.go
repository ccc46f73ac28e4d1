package vango_test

import (
	"errors"
	"fmt"
	"testing"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
	"github.com/vango-dev/vango-core/pkg/vtest"
)

var itemTmpl = vdom.NewTemplate("item", vdom.El("li", vdom.DynAttr(0), vdom.Dyn(0)))

type rowProps struct {
	Key string
}

// Row counts its own clicks.
func Row(s *vango.Scope, p rowProps) (*vdom.VNode, error) {
	clicks := vango.UseState(s, 0)
	return vdom.NewVNode(itemTmpl).
		Attr(0, vdom.ID("row-"+p.Key), vdom.OnClick(func(*vdom.Event) { clicks.Update(func(n int) int { return n + 1 }) })).
		Node(0, vdom.Textf("%s:%d", p.Key, clicks.Get())), nil
}

func RowList(s *vango.Scope, c *listCtl) (*vdom.VNode, error) {
	c.scope = s
	rows := make([]*vdom.VNode, len(c.items))
	for i, k := range c.items {
		rows[i] = slot(vango.Component(Row, rowProps{Key: k})).WithKey(k)
	}
	return vdom.NewVNode(listTmpl).Node(0, vdom.Fragment(rows...)), nil
}

func TestStateFollowsKeys(t *testing.T) {
	c := &listCtl{items: []string{"a", "b", "c"}}
	h := vtest.New(t, RowList, c)

	h.Click("row-b")
	h.Click("row-b")
	h.Click("row-c")
	vtest.ExpectHTML(t, h.Root(),
		`<ul><li id="row-a">a:0</li><li id="row-b">b:2</li><li id="row-c">c:1</li></ul>`)

	c.set(h, "c", "b", "a")
	vtest.ExpectHTML(t, h.Root(),
		`<ul><li id="row-c">c:1</li><li id="row-b">b:2</li><li id="row-a">a:0</li></ul>`)

	// A key that leaves and comes back starts over.
	c.set(h, "c", "a")
	c.set(h, "c", "a", "b")
	vtest.ExpectHTML(t, h.Root(),
		`<ul><li id="row-c">c:1</li><li id="row-a">a:0</li><li id="row-b">b:0</li></ul>`)

	// Root wrapper, two boundaries, the list, and three rows.
	if got := h.Runtime().ScopeCount(); got != 7 {
		t.Errorf("ScopeCount() = %d, want 7", got)
	}
	if got, want := h.Runtime().ElementCount(), h.Document().IDs(); got != want {
		t.Errorf("ElementCount() = %d, document ids = %d", got, want)
	}
}

type flakyCtl struct {
	extra  bool
	fail   error
	scope  *vango.Scope
	errors *vango.ErrorContext
}

// Flaky calls an extra hook, or fails outright, when told to.
func Flaky(s *vango.Scope, c *flakyCtl) (*vdom.VNode, error) {
	c.scope = s
	if c.errors == nil {
		c.errors, _ = vango.ConsumeContext[*vango.ErrorContext](s)
	}
	if c.extra {
		vango.UseMemo(s, func() int { return 1 })
	}
	n := vango.UseState(s, 0)
	if c.fail != nil {
		return nil, c.fail
	}
	return para(fmt.Sprintf("ok %d", n.Get())), nil
}

func guarded(child vdom.DynamicNode) func(*vango.Scope, struct{}) (*vdom.VNode, error) {
	return func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		return slot(vango.Component(vango.ErrorBoundary, vango.ErrorBoundaryProps{
			Children: slot(child),
			Fallback: func(err error, _ func()) *vdom.VNode {
				return para("failed: " + vangoerrors.Code(err))
			},
		})), nil
	}
}

func TestHookOrderChange(t *testing.T) {
	c := &flakyCtl{}
	h := vtest.New(t, guarded(vango.Component(Flaky, c)), struct{}{})
	vtest.ExpectHTML(t, h.Root(), "<p>ok 0</p>")

	c.extra = true
	c.scope.MarkDirty()
	h.Render()
	vtest.ExpectHTML(t, h.Root(), "<p>failed: E001</p>")

	errs := c.errors.Errors()
	if len(errs) != 1 {
		t.Fatalf("Errors() = %v, want one", errs)
	}
	if errs[0].Component != "Flaky" || errs[0].Scope != c.scope.ID() {
		t.Errorf("Errors()[0] = %+v, want Flaky scope %d", errs[0], c.scope.ID())
	}
	if c.scope.Status() != vango.ScopeFaulted {
		t.Errorf("Status() = %s, want Faulted", c.scope.Status())
	}

	// The fallback stays until the boundary is reset.
	c.extra = false
	c.scope.MarkDirty()
	h.Render()
	vtest.ExpectHTML(t, h.Root(), "<p>failed: E001</p>")

	c.errors.ClearErrors()
	vtest.ExpectEdits(t, h.Render(), `SetNodeText{value: "ok 0", id: 2}`)
	if c.errors.HasErrors() {
		t.Error("HasErrors() = true after ClearErrors")
	}
	if c.scope.Status() != vango.ScopeMounted {
		t.Errorf("Status() = %s, want Mounted", c.scope.Status())
	}
}

func TestNewHookAfterFirstRender(t *testing.T) {
	grow := false
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		vango.UseState(s, 0)
		if grow {
			vango.UseState(s, 1)
		}
		return para("x"), nil
	}
	h := vtest.New(t, app, struct{}{})

	grow = true
	h.Runtime().MarkDirty(vango.ScopeApp)
	_, err := h.TryRender()
	if code := vangoerrors.Code(err); code != "E001" {
		t.Errorf("Code() = %q, want E001 (error %v)", code, err)
	}
	if !errors.Is(err, vango.ErrTerminated) {
		t.Errorf("RenderImmediate() error = %v, want ErrTerminated", err)
	}
}

func TestUseMemo(t *testing.T) {
	type memoCtl struct {
		dep   int
		calls int
		scope *vango.Scope
	}
	app := func(s *vango.Scope, c *memoCtl) (*vdom.VNode, error) {
		c.scope = s
		v := vango.UseMemo(s, func() int {
			c.calls++
			return c.dep * 10
		}, c.dep)
		return para(fmt.Sprint(v)), nil
	}
	c := &memoCtl{dep: 1}
	h := vtest.New(t, app, c)

	c.scope.MarkDirty()
	h.Render()
	if c.calls != 1 {
		t.Errorf("compute ran %d times with unchanged deps, want 1", c.calls)
	}

	c.dep = 2
	c.scope.MarkDirty()
	vtest.ExpectEdits(t, h.Render(), `SetNodeText{value: "20", id: 2}`)
	if c.calls != 2 {
		t.Errorf("compute ran %d times, want 2", c.calls)
	}
}

type effectCtl struct {
	log   []string
	dep   int
	show  bool
	scope *vango.Scope
}

type effectProps struct {
	Dep int
	ctl *effectCtl
}

func EffectParent(s *vango.Scope, c *effectCtl) (*vdom.VNode, error) {
	c.scope = s
	vango.UseEffect(s, func() func() {
		c.log = append(c.log, "parent")
		return nil
	})
	child := vdom.PlaceholderNode()
	if c.show {
		child = vango.Component(EffectChild, effectProps{Dep: c.dep, ctl: c})
	}
	return vdom.NewVNode(sectionTmpl).Node(0, child), nil
}

func EffectChild(s *vango.Scope, p effectProps) (*vdom.VNode, error) {
	vango.UseEffect(s, func() func() {
		p.ctl.log = append(p.ctl.log, fmt.Sprintf("child %d", p.Dep))
		return func() { p.ctl.log = append(p.ctl.log, fmt.Sprintf("cleanup %d", p.Dep)) }
	}, p.Dep)
	return para(fmt.Sprint(p.Dep)), nil
}

func TestEffects(t *testing.T) {
	c := &effectCtl{dep: 1, show: true}
	h := vtest.New(t, EffectParent, c)

	steps := []struct {
		name   string
		update func()
		want   []string
	}{
		{"mount", func() {}, []string{"parent", "child 1"}},
		{"rerender without changes", func() {}, nil},
		{"deps changed", func() { c.dep = 2 }, []string{"cleanup 1", "child 2"}},
		{"unmount", func() { c.show = false }, []string{"cleanup 2"}},
		{"remount", func() { c.show = true }, []string{"child 2"}},
	}
	for i, step := range steps {
		if i > 0 {
			c.log = nil
			step.update()
			c.scope.MarkDirty()
			h.Render()
		}
		if len(c.log) != len(step.want) {
			t.Errorf("%s: log = %v, want %v", step.name, c.log, step.want)
			continue
		}
		for j := range step.want {
			if c.log[j] != step.want[j] {
				t.Errorf("%s: log = %v, want %v", step.name, c.log, step.want)
				break
			}
		}
	}
}

type theme string

type locale string

func Themed(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
	th := vango.UseContext[theme](s)
	loc, _ := vango.ConsumeContext[locale](s)
	_, missing := vango.ConsumeContext[int](s)
	return para(fmt.Sprintf("%s/%s/%v", th, loc, missing)), nil
}

func TestContext(t *testing.T) {
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		vango.ProvideContext(s, theme("dark"))
		return slot(vango.Component(Themed, struct{}{})), nil
	}
	h := vtest.New(t, app, struct{}{}, vango.WithRootContext(locale("en")))
	vtest.ExpectHTML(t, h.Root(), "<p>dark/en/false</p>")
}

func TestContextShadowing(t *testing.T) {
	inner := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		vango.ProvideContext(s, theme("light"))
		return slot(vango.Component(Themed, struct{}{})), nil
	}
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		vango.ProvideContext(s, theme("dark"))
		return slot(vango.Component(inner, struct{}{})), nil
	}
	h := vtest.New(t, app, struct{}{})
	vtest.ExpectHTML(t, h.Root(), "<p>light//false</p>")
}

func TestUseContextMissing(t *testing.T) {
	rt := vango.New(Themed, struct{}{}, vango.WithLogger(vtest.DiscardLogger()))
	defer rt.Close()

	err := rt.Rebuild(vdom.NoopSink{})
	if code := vangoerrors.Code(err); code != "E002" {
		t.Errorf("Code() = %q, want E002 (error %v)", code, err)
	}
}

func TestStateWriteAfterUnmount(t *testing.T) {
	var st *vango.State[int]
	grab := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		st = vango.UseState(s, 0)
		return para("x"), nil
	}
	c := &switchCtl{}
	app := func(s *vango.Scope, c *switchCtl) (*vdom.VNode, error) {
		c.scope = s
		if c.mode == 0 {
			return slot(vango.Component(grab, struct{}{})), nil
		}
		return para("gone"), nil
	}
	h := vtest.New(t, app, c)
	c.set(h, 1)

	st.Set(5)
	if st.Get() != 0 {
		t.Errorf("Get() = %d after a write to an unmounted scope, want 0", st.Get())
	}
	if h.Runtime().HasWork() {
		t.Error("HasWork() = true after a write to an unmounted scope")
	}
}
