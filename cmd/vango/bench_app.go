package main

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/vango-dev/vango-core/pkg/vango"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

var (
	loadTmpl = vdom.NewTemplate("bench-load",
		vdom.El("div",
			vdom.El("input", vdom.Attr("id", "echo-input"), vdom.Attr("type", "text"), vdom.DynAttr(0)),
			vdom.El("div", vdom.Attr("id", "echo"), vdom.Dyn(0)),
			vdom.El("ul", vdom.Dyn(1)),
		),
	)

	loadItemTmpl = vdom.NewTemplate("bench-item", vdom.El("li", vdom.Dyn(0)))
)

// loadProps sizes the benchmark page.
type loadProps struct {
	ListSize int
}

// loadApp is a small page for exercising render, diff and replay costs.
// Every input echoes its value and overwrites one keyed list row chosen by
// the value's hash.
func loadApp(s *vango.Scope, p loadProps) (*vdom.VNode, error) {
	echo := vango.UseState(s, "")
	items := vango.UseState(s, seedItems(p.ListSize))

	list := items.Get()
	rows := make([]*vdom.VNode, len(list))
	for i, it := range list {
		rows[i] = vdom.NewVNode(loadItemTmpl).Node(0, vdom.TextNode(it)).Keyf("%d", i)
	}

	return vdom.NewVNode(loadTmpl).
		Attr(0, vdom.OnInput(func(e *vdom.Event) {
			value := inputValue(e)
			echo.Set(value)
			items.Update(func(prev []string) []string {
				if len(prev) == 0 {
					return prev
				}
				next := make([]string, len(prev))
				copy(next, prev)
				next[rowFor(value, len(next))] = value
				return next
			})
		})).
		Node(0, vdom.TextNode(echo.Get())).
		Node(1, vdom.Fragment(rows...)), nil
}

func seedItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("Item %d", i)
	}
	return items
}

func rowFor(value string, n int) int {
	return int(xxhash.Sum64String(value) % uint64(n))
}

func inputValue(e *vdom.Event) string {
	switch d := e.Data.(type) {
	case map[string]any:
		v, _ := d["value"].(string)
		return v
	case string:
		return d
	}
	return ""
}
