package vango_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
	"github.com/vango-dev/vango-core/pkg/vtest"
)

var counterTmpl = vdom.NewTemplate("counter",
	vdom.El("div",
		vdom.El("button", vdom.Attr("id", "inc"), vdom.DynAttr(0), "+"),
		vdom.El("span", vdom.Dyn(0)),
	),
)

type CounterProps struct {
	Start int
}

func Counter(s *vango.Scope, p CounterProps) (*vdom.VNode, error) {
	count := vango.UseState(s, p.Start)
	return vdom.NewVNode(counterTmpl).
		Attr(0, vdom.OnClick(func(*vdom.Event) { count.Set(count.Get() + 1) })).
		Node(0, vdom.Textf("count: %d", count.Get())), nil
}

var textTmpl = vdom.NewTemplate("p", vdom.El("p", vdom.Dyn(0)))

func para(s string) *vdom.VNode {
	return vdom.NewVNode(textTmpl).Node(0, vdom.TextNode(s))
}

// recorder is an Observer that keeps what it saw.
type recorder struct {
	mu       sync.Mutex
	rendered []string
	outcomes []vango.Outcome
	cycles   []vango.Cycle
	edits    []int
	events   []string
	tasks    []vango.TaskID
}

func (r *recorder) CycleFinished(kind vango.Cycle, _ time.Time, edits int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, kind)
	r.edits = append(r.edits, edits)
}

func (r *recorder) ScopeRendered(_ vango.ScopeID, name string, _ time.Duration, o vango.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, name)
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) EventDispatched(name string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recorder) TaskFinished(id vango.TaskID, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, id)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = nil
	r.outcomes = nil
}

func TestRebuild(t *testing.T) {
	h := vtest.New(t, Counter, CounterProps{})

	vtest.ExpectEdits(t, h.Last(),
		`LoadTemplate{name: "counter", index: 0, id: 1}`,
		`AssignNodeID{path: [0], id: 2}`,
		`CreateEventListener{name: "click", id: 2}`,
		`HydrateText{path: [1 0], value: "count: 0", id: 3}`,
		`AppendChildren{id: 0, m: 1}`,
	)
	vtest.ExpectHTML(t, h.Root(), `<div><button id="inc">+</button><span>count: 0</span></div>`)

	rt := h.Runtime()
	// Root wrapper, suspense boundary, error boundary, and the application.
	if got := rt.ScopeCount(); got != 4 {
		t.Errorf("ScopeCount() = %d, want 4", got)
	}
	app, ok := rt.Scope(vango.ScopeApp)
	if !ok {
		t.Fatal("application scope missing")
	}
	if app.Height() != 3 {
		t.Errorf("Height() = %d, want 3", app.Height())
	}
	if parent, _ := app.Parent(); parent != vango.ScopeRootErrors {
		t.Errorf("Parent() = %d, want %d", parent, vango.ScopeRootErrors)
	}
	if app.Name() != "Counter" {
		t.Errorf("Name() = %q, want Counter", app.Name())
	}
	if got, want := rt.ElementCount(), h.Document().IDs(); got != want {
		t.Errorf("ElementCount() = %d, document ids = %d", got, want)
	}
}

func TestRebuildTwice(t *testing.T) {
	h := vtest.New(t, Counter, CounterProps{})
	if err := h.Runtime().Rebuild(vdom.NoopSink{}); !errors.Is(err, vango.ErrAlreadyBuilt) {
		t.Errorf("Rebuild() error = %v, want ErrAlreadyBuilt", err)
	}
}

func TestRenderBeforeRebuild(t *testing.T) {
	rt := vango.New(Counter, CounterProps{}, vango.WithLogger(vtest.DiscardLogger()))
	defer rt.Close()
	if err := rt.RenderImmediate(vdom.NoopSink{}); !errors.Is(err, vango.ErrNotBuilt) {
		t.Errorf("RenderImmediate() error = %v, want ErrNotBuilt", err)
	}
}

func TestStateUpdate(t *testing.T) {
	h := vtest.New(t, Counter, CounterProps{Start: 5})

	h.Click("inc")
	vtest.ExpectEdits(t, h.Last(), `SetNodeText{value: "count: 6", id: 3}`)

	h.Click("inc")
	h.Click("inc")
	vtest.ExpectHTML(t, h.Root(), `<div><button id="inc">+</button><span>count: 8</span></div>`)

	app, _ := h.Runtime().Scope(vango.ScopeApp)
	if app.RenderCount() != 4 {
		t.Errorf("RenderCount() = %d, want 4", app.RenderCount())
	}
}

func TestRenderIdempotent(t *testing.T) {
	h := vtest.New(t, Counter, CounterProps{})

	vtest.ExpectEdits(t, h.Render())

	// Re-running a scope whose output did not change emits nothing.
	h.Runtime().MarkDirty(vango.ScopeApp)
	vtest.ExpectEdits(t, h.Render())

	app, _ := h.Runtime().Scope(vango.ScopeApp)
	if app.RenderCount() != 2 {
		t.Errorf("RenderCount() = %d, want 2", app.RenderCount())
	}
}

func TestObserver(t *testing.T) {
	rec := &recorder{}
	h := vtest.New(t, Counter, CounterProps{}, vango.WithObserver(rec))

	want := []string{"Root", "SuspenseBoundary", "RootErrorBoundary", "Counter"}
	if len(rec.rendered) != len(want) {
		t.Fatalf("rendered = %v, want %v", rec.rendered, want)
	}
	for i := range want {
		if rec.rendered[i] != want[i] {
			t.Errorf("rendered[%d] = %s, want %s", i, rec.rendered[i], want[i])
		}
	}

	h.Click("inc")
	if len(rec.cycles) != 2 || rec.cycles[0] != vango.CycleRebuild || rec.cycles[1] != vango.CycleRender {
		t.Errorf("cycles = %v, want [rebuild render]", rec.cycles)
	}
	if rec.edits[0] != 5 || rec.edits[1] != 1 {
		t.Errorf("edits = %v, want [5 1]", rec.edits)
	}
	if len(rec.events) != 1 || rec.events[0] != "click" {
		t.Errorf("events = %v, want [click]", rec.events)
	}
}

func TestFatalFault(t *testing.T) {
	boom := errors.New("boom")
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		return nil, boom
	}
	rt := vango.New(app, struct{}{}, vango.WithLogger(vtest.DiscardLogger()))
	defer rt.Close()

	err := rt.Rebuild(vdom.NoopSink{})
	if !errors.Is(err, vango.ErrTerminated) {
		t.Fatalf("Rebuild() error = %v, want ErrTerminated", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Rebuild() error = %v, want it to wrap boom", err)
	}
	if code := vangoerrors.Code(err); code != "E004" {
		t.Errorf("Code() = %q, want E004", code)
	}
	if err := rt.RenderImmediate(vdom.NoopSink{}); !errors.Is(err, vango.ErrTerminated) {
		t.Errorf("RenderImmediate() error = %v, want ErrTerminated", err)
	}
	if rt.Err() == nil {
		t.Error("Err() = nil after a fatal fault")
	}
}

func TestRenderPanic(t *testing.T) {
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		panic("kaboom")
	}
	rt := vango.New(app, struct{}{}, vango.WithLogger(vtest.DiscardLogger()))
	defer rt.Close()

	err := rt.Rebuild(vdom.NoopSink{})
	if code := vangoerrors.Code(err); code != "E006" {
		t.Errorf("Code() = %q, want E006 (error %v)", code, err)
	}
}

func TestRenderDoesNotConverge(t *testing.T) {
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		n := vango.UseState(s, 0)
		if s.RenderCount() > 1 {
			n.Set(n.Get() + 1)
		}
		return para("x"), nil
	}
	rt := vango.New(app, struct{}{},
		vango.WithLogger(vtest.DiscardLogger()),
		vango.WithMaxRenderPasses(5))
	defer rt.Close()

	if err := rt.Rebuild(vdom.NoopSink{}); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	rt.MarkDirty(vango.ScopeApp)
	err := rt.RenderImmediate(vdom.NoopSink{})
	if code := vangoerrors.Code(err); code != "E008" {
		t.Errorf("Code() = %q, want E008 (error %v)", code, err)
	}
}

type closer struct{ closed *int }

func (c closer) Dispose() { *c.closed++ }

func TestClose(t *testing.T) {
	closed := 0
	app := func(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
		vango.UseHook(s, func() closer { return closer{closed: &closed} })
		return para("x"), nil
	}
	h := vtest.New(t, app, struct{}{})
	rt := h.Runtime()

	if err := rt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if closed != 1 {
		t.Errorf("disposed %d times, want 1", closed)
	}
	if rt.ScopeCount() != 0 {
		t.Errorf("ScopeCount() = %d after Close, want 0", rt.ScopeCount())
	}
	err := rt.RenderImmediate(vdom.NoopSink{})
	if !errors.Is(err, vango.ErrTerminated) {
		t.Errorf("RenderImmediate() error = %v, want ErrTerminated", err)
	}
	if code := vangoerrors.Code(err); code != "E007" {
		t.Errorf("Code() = %q, want E007", code)
	}
	if err := rt.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if closed != 1 {
		t.Errorf("disposed %d times after second Close, want 1", closed)
	}
}

func TestRenderImmediateToMutations(t *testing.T) {
	h := vtest.New(t, Counter, CounterProps{})
	rt := h.Runtime()
	rt.Dispatch(h.ID("id", "inc"), "click", nil)

	m, err := rt.RenderImmediateToMutations()
	if err != nil {
		t.Fatalf("RenderImmediateToMutations() error = %v", err)
	}
	vtest.ExpectEdits(t, m, `SetNodeText{value: "count: 1", id: 3}`)
}
