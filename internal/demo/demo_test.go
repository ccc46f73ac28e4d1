package demo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vango-core/pkg/render"
	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vtest"
)

func todoTexts(h *vtest.Harness) []string {
	var out []string
	for _, li := range vtest.FindTag(h.Root(), "li") {
		out = append(out, vtest.FindTag(li, "span")[0].TextContent())
	}
	return out
}

func clickRow(t *testing.T, h *vtest.Harness, key, class string) {
	t.Helper()
	li := h.Find("data-key", key)
	if li == nil {
		t.Fatalf("no row with data-key=%s", key)
	}
	btn := vtest.FindAttr(li, "class", class)
	if btn == nil {
		t.Fatalf("row %s has no %s button", key, class)
	}
	h.Dispatch(btn.ID, "click", nil)
	h.Render()
}

func TestAppRebuild(t *testing.T) {
	h := vtest.New(t, App, Props{Title: "Demo", Todos: []string{"milk", "eggs"}})
	h.Await(time.Second)

	vtest.ExpectContains(t, h.Root(), "<h1>Demo</h1>")
	vtest.ExpectContains(t, h.Root(), "count: 0 (even)")
	vtest.ExpectContains(t, h.Root(), "2 of 2 left")
	vtest.ExpectContains(t, h.Root(), "<blockquote>"+DefaultQuote+"</blockquote>")
	vtest.ExpectContains(t, h.Root(), "widget ok")
	if diff := cmp.Diff([]string{"milk", "eggs"}, todoTexts(h)); diff != "" {
		t.Errorf("todos mismatch (-want +got):\n%s", diff)
	}
}

func TestCounter(t *testing.T) {
	h := vtest.New(t, App, Props{})
	h.Click("inc")
	h.Click("inc")
	h.Click("inc")
	vtest.ExpectContains(t, h.Root(), "count: 3 (odd)")
	h.Click("dec")
	vtest.ExpectContains(t, h.Root(), "count: 2 (even)")
}

func TestTodoList(t *testing.T) {
	h := vtest.New(t, App, Props{Todos: []string{"milk"}})

	h.Dispatch(h.ID("id", "new"), "input", map[string]any{"value": "bread"})
	h.Render()
	h.Click("add")
	if diff := cmp.Diff([]string{"milk", "bread"}, todoTexts(h)); diff != "" {
		t.Fatalf("after add (-want +got):\n%s", diff)
	}

	// An empty draft adds nothing.
	h.Click("add")
	if got := len(todoTexts(h)); got != 2 {
		t.Errorf("rows = %d after adding an empty draft, want 2", got)
	}

	clickRow(t, h, "1", "toggle")
	vtest.ExpectContains(t, h.Root(), "1 of 2 left")
	if v, _ := h.Find("data-key", "1").Attr("class"); v.String() != "done" {
		t.Errorf("row 1 class = %q, want done", v.String())
	}

	milk := h.Find("data-key", "1")
	h.Click("reverse")
	if diff := cmp.Diff([]string{"bread", "milk"}, todoTexts(h)); diff != "" {
		t.Errorf("after reverse (-want +got):\n%s", diff)
	}
	if h.Find("data-key", "1") != milk {
		t.Error("reverse recreated a keyed row instead of moving it")
	}

	clickRow(t, h, "2", "remove")
	if diff := cmp.Diff([]string{"milk"}, todoTexts(h)); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
	vtest.ExpectContains(t, h.Root(), "0 of 1 left")
}

// renderCounter counts renders per component name.
type renderCounter struct {
	renders map[string]int
}

func (r *renderCounter) CycleFinished(vango.Cycle, time.Time, int, error) {}
func (r *renderCounter) EventDispatched(string, int)                      {}
func (r *renderCounter) TaskFinished(vango.TaskID, error)                 {}
func (r *renderCounter) ScopeRendered(_ vango.ScopeID, name string, _ time.Duration, _ vango.Outcome) {
	r.renders[name]++
}

func TestTodoMemoizedRowsSkipRender(t *testing.T) {
	rc := &renderCounter{renders: map[string]int{}}
	h := vtest.New(t, App, Props{Todos: []string{"a", "b", "c"}}, vango.WithObserver(rc))
	if got := rc.renders["TodoItem"]; got != 3 {
		t.Fatalf("TodoItem renders after rebuild = %d, want 3", got)
	}

	clickRow(t, h, "2", "toggle")
	if got := rc.renders["TodoItem"]; got != 4 {
		t.Errorf("TodoItem renders after toggling one row = %d, want 4", got)
	}
}

func TestQuoteSuspends(t *testing.T) {
	release := make(chan struct{})
	h := vtest.New(t, App, Props{Quote: func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "later", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}})

	vtest.ExpectContains(t, h.Root(), "loading quote...")
	// The rest of the page is interactive while the quote is pending.
	h.Click("inc")
	vtest.ExpectContains(t, h.Root(), "count: 1 (odd)")

	close(release)
	h.Await(time.Second)
	vtest.ExpectContains(t, h.Root(), "<blockquote>later</blockquote>")
	vtest.ExpectNotContains(t, h.Root(), "loading quote...")
}

func TestQuoteFailureIsContained(t *testing.T) {
	boom := errors.New("quote service down")
	h := vtest.New(t, App, Props{Quote: func(context.Context) (string, error) { return "", boom }})
	h.Await(time.Second)

	vtest.ExpectContains(t, h.Root(), "crashed: quote service down")
	vtest.ExpectNotContains(t, h.Root(), "loading quote...")
	vtest.ExpectContains(t, h.Root(), "count: 0")
	if err := h.Runtime().Err(); err != nil {
		t.Errorf("Runtime().Err() = %v, want nil", err)
	}
}

func TestWidgetErrorBoundary(t *testing.T) {
	h := vtest.New(t, App, Props{})
	h.Await(time.Second)

	h.Click("boom")
	vtest.ExpectContains(t, h.Root(), "crashed: "+ErrExploded.Error())
	vtest.ExpectNotContains(t, h.Root(), "widget ok")
	vtest.ExpectContains(t, h.Root(), DefaultQuote)

	h.Click("recover")
	vtest.ExpectContains(t, h.Root(), "widget ok")
	vtest.ExpectNotContains(t, h.Root(), "crashed:")
}

func TestDelayedQuoteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := delayedQuote(time.Hour)(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("delayedQuote() error = %v, want context.Canceled", err)
	}
}

func TestSnapshotMatchesLive(t *testing.T) {
	// A fresh runtime rebuilt into a document renders the same page the
	// harness shows before any interaction.
	props := Props{Todos: []string{"x"}, Quote: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	rt := vango.New(App, props, vango.WithLogger(vtest.DiscardLogger()))
	defer rt.Close()
	doc := render.NewDocument()
	if err := rt.Rebuild(doc); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	h := vtest.New(t, App, props)
	if diff := cmp.Diff(h.HTML(), render.HTML(doc.Root())); diff != "" {
		t.Errorf("snapshot mismatch (-harness +snapshot):\n%s", diff)
	}
}
