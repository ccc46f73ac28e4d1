// Package vango is the component runtime: it owns the scope tree, runs
// components, diffs their output, and streams edits to a renderer.
//
// # Components
//
// A component is a function of a Scope and a props value:
//
//	func Counter(s *vango.Scope, p CounterProps) (*vdom.VNode, error) {
//	    count := vango.UseState(s, p.Start)
//	    return vdom.NewVNode(counterTmpl).
//	        Node(0, vdom.Textf("%d", count.Get())).
//	        Attr(0, vdom.OnClick(func(*vdom.Event) { count.Update(inc) })), nil
//	}
//
// Components are placed in the tree with Component, which returns a
// vdom.DynamicNode. A component whose render function and props compare
// equal to the previous render is not re-run.
//
// # Runtime
//
// A Runtime is driven by a single host goroutine:
//
//	rt := vango.New(App, AppProps{})
//	var edits vdom.Mutations
//	rt.Rebuild(&edits)
//	for {
//	    if err := rt.WaitForWork(ctx); err != nil {
//	        return err
//	    }
//	    edits.Reset()
//	    if err := rt.RenderImmediate(&edits); err != nil {
//	        return err
//	    }
//	    send(edits.Edits)
//	}
//
// Events from the renderer are delivered with Dispatch. Background work is
// started with Scope.Spawn or UseFuture; task goroutines never touch the tree
// directly, their completions are applied on the host goroutine by
// ProcessEvents.
//
// # Boundaries
//
// Every runtime wraps the application in a root SuspenseBoundary and a root
// ErrorBoundary. A component that suspends on a pending task, or fails to
// render, is replaced at its own position by the fallback of the nearest
// enclosing boundary while its siblings render normally. A fault that reaches
// the root error boundary terminates the runtime.
//
// # Hooks
//
// Hooks (UseState, UseHook, UseMemo, UseEffect, UseFuture, UseContext) store
// their state in the scope by call order. A component must call the same hooks
// in the same order on every render; a mismatch faults the scope with E001.
package vango
