// Package demo is the sample application served by `vango serve` and driven
// by `vango render`. It covers state, memoization, a keyed list, suspense and
// an error boundary.
package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// DefaultQuote is what the quote panel shows when Props.Quote is nil.
const DefaultQuote = "Simplicity is prerequisite for reliability."

// ErrExploded is returned by the widget's boom button.
var ErrExploded = errors.New("demo: widget exploded")

// Props configures the demo application.
type Props struct {
	// Title is the page heading. Default: "Vango demo".
	Title string

	// Todos seeds the todo list.
	Todos []string

	// Quote loads the quote panel. Nil waits QuoteDelay and returns
	// DefaultQuote.
	Quote func(ctx context.Context) (string, error)

	// QuoteDelay delays the default quote.
	QuoteDelay time.Duration
}

var (
	slotTmpl = vdom.NewTemplate("demo-slot", vdom.Dyn(0))

	appTmpl = vdom.NewTemplate("demo-app",
		vdom.El("div", vdom.Attr("class", "app"),
			vdom.El("h1", vdom.Dyn(0)),
			vdom.Dyn(1),
			vdom.Dyn(2),
			vdom.Dyn(3),
		),
	)

	counterTmpl = vdom.NewTemplate("demo-counter",
		vdom.El("div", vdom.Attr("class", "counter"),
			vdom.El("button", vdom.Attr("id", "dec"), vdom.DynAttr(0), "-"),
			vdom.El("span", vdom.Attr("id", "count"), vdom.Dyn(0)),
			vdom.El("button", vdom.Attr("id", "inc"), vdom.DynAttr(1), "+"),
		),
	)

	todosTmpl = vdom.NewTemplate("demo-todos",
		vdom.El("div", vdom.Attr("class", "todos"),
			vdom.El("input", vdom.Attr("id", "new"), vdom.Attr("placeholder", "what next?"), vdom.DynAttr(0)),
			vdom.El("button", vdom.Attr("id", "add"), vdom.DynAttr(1), "add"),
			vdom.El("button", vdom.Attr("id", "reverse"), vdom.DynAttr(2), "reverse"),
			vdom.El("ul", vdom.Dyn(0)),
			vdom.El("p", vdom.Attr("id", "remaining"), vdom.Dyn(1)),
		),
	)

	todoTmpl = vdom.NewTemplate("demo-todo",
		vdom.El("li", vdom.DynAttr(0),
			vdom.El("span", vdom.Dyn(0)),
			vdom.El("button", vdom.Attr("class", "toggle"), vdom.DynAttr(1), "toggle"),
			vdom.El("button", vdom.Attr("class", "remove"), vdom.DynAttr(2), "x"),
		),
	)

	panelsTmpl = vdom.NewTemplate("demo-panels",
		vdom.El("div", vdom.Attr("class", "panels"),
			vdom.El("section", vdom.Attr("class", "quote"), vdom.Dyn(0)),
			vdom.El("section", vdom.Attr("class", "widget"), vdom.Dyn(1)),
		),
	)

	quoteTmpl   = vdom.NewTemplate("demo-quote", vdom.El("blockquote", vdom.Dyn(0)))
	loadingTmpl = vdom.NewTemplate("demo-loading", vdom.El("p", vdom.Attr("class", "loading"), "loading quote..."))

	widgetTmpl = vdom.NewTemplate("demo-widget",
		vdom.El("div",
			vdom.El("span", vdom.Attr("id", "widget"), "widget ok"),
			vdom.El("button", vdom.Attr("id", "boom"), vdom.DynAttr(0), "boom"),
		),
	)

	crashTmpl = vdom.NewTemplate("demo-crash",
		vdom.El("div", vdom.Attr("class", "crash"),
			vdom.El("span", vdom.Attr("id", "crash"), vdom.Dyn(0)),
			vdom.El("button", vdom.Attr("id", "recover"), vdom.DynAttr(0), "recover"),
		),
	)
)

// App is the root component.
func App(s *vango.Scope, p Props) (*vdom.VNode, error) {
	title := p.Title
	if title == "" {
		title = "Vango demo"
	}
	load := p.Quote
	if load == nil {
		load = delayedQuote(p.QuoteDelay)
	}

	panels := vdom.NewVNode(panelsTmpl).
		Node(0, vango.Component(vango.SuspenseBoundary, vango.SuspenseBoundaryProps{
			Children: slot(vango.Component(Quote, QuoteProps{Load: load})),
			Fallback: func() *vdom.VNode { return vdom.NewVNode(loadingTmpl) },
		})).
		Node(1, vango.Component(Widget, struct{}{}))

	return vdom.NewVNode(appTmpl).
		Node(0, vdom.TextNode(title)).
		Node(1, vango.Component(Counter, 0)).
		Node(2, vango.Component(TodoList, TodoListProps{Initial: p.Todos})).
		Node(3, vango.Component(vango.ErrorBoundary, vango.ErrorBoundaryProps{
			Children: panels,
			Fallback: crashed,
		})), nil
}

func slot(d vdom.DynamicNode) *vdom.VNode {
	return vdom.NewVNode(slotTmpl).Node(0, d)
}

// Counter is a number with increment and decrement buttons.
func Counter(s *vango.Scope, start int) (*vdom.VNode, error) {
	count := vango.UseState(s, start)
	n := count.Get()
	parity := vango.UseMemo(s, func() string {
		if n%2 == 0 {
			return "even"
		}
		return "odd"
	}, n)

	return vdom.NewVNode(counterTmpl).
		Attr(0, vdom.OnClick(func(*vdom.Event) { count.Update(func(v int) int { return v - 1 }) })).
		Attr(1, vdom.OnClick(func(*vdom.Event) { count.Update(func(v int) int { return v + 1 }) })).
		Node(0, vdom.Textf("count: %d (%s)", n, parity)), nil
}

// Todo is one todo list entry. ID is stable for the entry's lifetime and
// keys its row.
type Todo struct {
	ID   int
	Text string
	Done bool
}

// TodoListProps seeds a TodoList.
type TodoListProps struct {
	Initial []string
}

type todoState struct {
	items  []Todo
	nextID int
}

// TodoList is a keyed list with add, toggle, remove and reverse.
func TodoList(s *vango.Scope, p TodoListProps) (*vdom.VNode, error) {
	list := vango.UseState(s, seed(p.Initial))
	draft := vango.UseState(s, "")

	st := list.Get()
	rows := make([]*vdom.VNode, len(st.items))
	remaining := 0
	for i, t := range st.items {
		if !t.Done {
			remaining++
		}
		id := t.ID
		rows[i] = slot(vango.Component(TodoItem, TodoItemProps{
			Todo:   t,
			Toggle: func() { list.Set(list.Get().update(id, func(t *Todo) { t.Done = !t.Done })) },
			Remove: func() { list.Set(list.Get().remove(id)) },
		})).Keyf("todo-%d", id)
	}

	return vdom.NewVNode(todosTmpl).
		Attr(0, vdom.Value(draft.Get()), vdom.OnInput(func(e *vdom.Event) {
			draft.Set(eventValue(e))
		})).
		Attr(1, vdom.OnClick(func(*vdom.Event) {
			text := draft.Get()
			if text == "" {
				return
			}
			list.Set(list.Get().add(text))
			draft.Set("")
		})).
		Attr(2, vdom.OnClick(func(*vdom.Event) { list.Set(list.Get().reverse()) })).
		Node(0, vdom.Fragment(rows...)).
		Node(1, vdom.Textf("%d of %d left", remaining, len(st.items))), nil
}

func seed(texts []string) todoState {
	var st todoState
	for _, text := range texts {
		st = st.add(text)
	}
	return st
}

// The todoState methods return modified copies; a State value is never
// mutated in place.

func (st todoState) add(text string) todoState {
	items := make([]Todo, len(st.items), len(st.items)+1)
	copy(items, st.items)
	st.nextID++
	st.items = append(items, Todo{ID: st.nextID, Text: text})
	return st
}

func (st todoState) update(id int, fn func(*Todo)) todoState {
	items := make([]Todo, len(st.items))
	copy(items, st.items)
	for i := range items {
		if items[i].ID == id {
			fn(&items[i])
		}
	}
	st.items = items
	return st
}

func (st todoState) remove(id int) todoState {
	items := make([]Todo, 0, len(st.items))
	for _, t := range st.items {
		if t.ID != id {
			items = append(items, t)
		}
	}
	st.items = items
	return st
}

func (st todoState) reverse() todoState {
	items := make([]Todo, len(st.items))
	for i, t := range st.items {
		items[len(items)-1-i] = t
	}
	st.items = items
	return st
}

// TodoItemProps are the props of one row.
type TodoItemProps struct {
	Todo   Todo
	Toggle func()
	Remove func()
}

// Memoize skips re-rendering a row whose entry is unchanged. The callbacks
// read the list state when invoked so a memoized row never acts on stale
// data.
func (p TodoItemProps) Memoize(other TodoItemProps) bool {
	return p.Todo == other.Todo
}

// TodoItem renders one row.
func TodoItem(s *vango.Scope, p TodoItemProps) (*vdom.VNode, error) {
	return vdom.NewVNode(todoTmpl).
		Attr(0,
			vdom.Data("key", fmt.Sprint(p.Todo.ID)),
			vdom.ClassIf(p.Todo.Done, "done"),
		).
		Attr(1, vdom.OnClick(func(*vdom.Event) { p.Toggle() })).
		Attr(2, vdom.OnClick(func(*vdom.Event) { p.Remove() })).
		Node(0, vdom.TextNode(p.Todo.Text)), nil
}

// QuoteProps configures Quote.
type QuoteProps struct {
	Load func(ctx context.Context) (string, error)
}

// Quote suspends until its loader returns.
func Quote(s *vango.Scope, p QuoteProps) (*vdom.VNode, error) {
	q, err := vango.UseFuture(s, p.Load).Suspend()
	if err != nil {
		return nil, err
	}
	return vdom.NewVNode(quoteTmpl).Node(0, vdom.TextNode(q)), nil
}

func delayedQuote(d time.Duration) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if d <= 0 {
			return DefaultQuote, nil
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return DefaultQuote, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Widget fails from its boom listener, handing the fault to the enclosing
// error boundary.
func Widget(s *vango.Scope, _ struct{}) (*vdom.VNode, error) {
	return vdom.NewVNode(widgetTmpl).
		Attr(0, vdom.OnErr("click", func(*vdom.Event) error { return ErrExploded })), nil
}

func crashed(err error, reset func()) *vdom.VNode {
	return vdom.NewVNode(crashTmpl).
		Attr(0, vdom.OnClick(func(*vdom.Event) { reset() })).
		Node(0, vdom.Textf("crashed: %v", err))
}

// eventValue extracts the "value" field of an input event payload.
func eventValue(e *vdom.Event) string {
	switch d := e.Data.(type) {
	case map[string]any:
		v, _ := d["value"].(string)
		return v
	case string:
		return d
	}
	return ""
}
