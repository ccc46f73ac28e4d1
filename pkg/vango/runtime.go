package vango

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
	"github.com/vango-dev/vango-core/pkg/vdom"
)

// Runtime owns a component tree and turns state changes into edits.
//
// All methods must be called from a single host goroutine. Tasks run on their
// own goroutines and hand their results back through ProcessEvents.
type Runtime struct {
	cfg      Config
	logger   *slog.Logger
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc

	scopes   slab[*Scope]
	mounts   slab[*mount]
	elements slab[elementRef]

	// scopeStack holds the scopes whose output is being created or diffed.
	scopeStack []ScopeID

	dirty   orderedSet
	ready   []readyTask
	effects []pendingEffect

	tasks    map[TaskID]*task
	nextTask TaskID
	waiting  map[TaskID][]*SuspenseContext
	inbox    *ingress

	built  bool
	closed bool
	fatal  error
}

// New creates a runtime for the application component app. The tree is not
// rendered until Rebuild.
func New[P any](app Render[P], props P, opts ...Option) *Runtime {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := &Runtime{
		cfg:      cfg,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		tasks:    make(map[TaskID]*task),
		waiting:  make(map[TaskID][]*SuspenseContext),
		inbox:    newIngress(),
	}
	if rt.observer == nil {
		rt.observer = nopObserver{}
	}
	rt.ctx, rt.cancel = context.WithCancel(cfg.Context)

	// Slot 0 of both arenas is reserved: element 0 is the root container and
	// mount 0 means unmounted.
	rt.elements.insert(elementRef{})
	rt.mounts.insert(nil)

	appNode := Component(app, props)
	root := rt.newScope(nil, &component[struct{}]{
		name: "Root",
		fn: func(s *Scope, _ struct{}) (*vdom.VNode, error) {
			return rootNode(rootSuspense(rootNode(rootErrors(rootNode(appNode))))), nil
		},
	})
	for _, provide := range cfg.rootContexts {
		provide(rt)
	}
	rt.logger.Debug("runtime created", "root", uint32(root.id))
	return rt
}

var rootTemplate = vdom.NewTemplate("vango:root", vdom.Dyn(0))

func rootNode(d vdom.DynamicNode) *vdom.VNode {
	return vdom.NewVNode(rootTemplate).Node(0, d)
}

func rootSuspense(children *vdom.VNode) vdom.DynamicNode {
	return NamedComponent("SuspenseBoundary", SuspenseBoundary, SuspenseBoundaryProps{Children: children})
}

func rootErrors(children *vdom.VNode) vdom.DynamicNode {
	return NamedComponent("RootErrorBoundary", rootErrorBoundary, ErrorBoundaryProps{Children: children})
}

// Scope returns a mounted scope.
func (rt *Runtime) Scope(id ScopeID) (*Scope, bool) {
	s, ok := rt.scopes.get(uint32(id))
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

// Scopes returns the mounted scopes in id order.
func (rt *Runtime) Scopes() []*Scope {
	out := make([]*Scope, 0, rt.scopes.len())
	rt.scopes.each(func(_ uint32, s *Scope) {
		if s != nil {
			out = append(out, s)
		}
	})
	return out
}

// ScopeCount returns the number of mounted scopes.
func (rt *Runtime) ScopeCount() int { return rt.scopes.len() }

// ElementCount returns the number of live element ids, including the root
// container.
func (rt *Runtime) ElementCount() int { return rt.elements.len() }

// Err returns the fatal error that terminated the runtime, if any.
func (rt *Runtime) Err() error { return rt.fatal }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

func (rt *Runtime) usable() error {
	if rt.fatal != nil {
		return rt.fatal
	}
	if rt.closed {
		return vangoerrors.New("E007").Wrap(ErrTerminated)
	}
	return nil
}

// Rebuild renders the whole tree for the first time. Its edits leave the
// application's roots appended to element 0.
func (rt *Runtime) Rebuild(sink vdom.MutationSink) error {
	if err := rt.usable(); err != nil {
		return err
	}
	if rt.built {
		return ErrAlreadyBuilt
	}
	rt.built = true
	start := time.Now()
	before := editCount(sink)

	root, _ := rt.Scope(ScopeRoot)
	node := rt.runScope(root)
	rt.pushScope(ScopeRoot)
	n := rt.createNode(node, elementRef{}, sink)
	rt.popScope()
	root.lastNode = node
	sink.AppendChildren(vdom.RootElement, n)

	if rt.fatal == nil {
		rt.flushEffects()
	}
	rt.observer.CycleFinished(CycleRebuild, start, editsSince(sink, before), rt.fatal)
	return rt.fatal
}

// RenderImmediate applies pending task completions, re-renders every dirty
// scope parents-first, polls ready tasks, and then runs effects. It never
// blocks.
func (rt *Runtime) RenderImmediate(sink vdom.MutationSink) error {
	if err := rt.usable(); err != nil {
		return err
	}
	if !rt.built {
		return ErrNotBuilt
	}
	start := time.Now()
	before := editCount(sink)
	rt.ProcessEvents()

	// Height ordering renders each scope once per pass over the dirty set, so
	// a scope rendering more often than MaxRenderPasses keeps re-dirtying.
	renders := make(map[ScopeID]int)
	for rt.fatal == nil {
		w, ok := rt.PopWork()
		if !ok {
			break
		}
		switch w.Kind {
		case WorkRerunScope:
			renders[w.Scope]++
			if renders[w.Scope] > rt.cfg.MaxRenderPasses {
				rt.fail(vangoerrors.New("E008").
					WithScope(uint32(w.Scope)).
					WithDetail(fmt.Sprintf("scope rendered more than %d times in one render", rt.cfg.MaxRenderPasses)))
				break
			}
			rt.rerunScope(w.Scope, sink)
		case WorkPollTask:
			rt.pollTask(w.Task)
		}
	}

	if rt.fatal == nil {
		rt.flushEffects()
	}
	rt.observer.CycleFinished(CycleRender, start, editsSince(sink, before), rt.fatal)
	return rt.fatal
}

// RenderImmediateToMutations renders into a fresh Mutations batch.
func (rt *Runtime) RenderImmediateToMutations() (*vdom.Mutations, error) {
	var m vdom.Mutations
	err := rt.RenderImmediate(&m)
	return &m, err
}

// Close unmounts the tree without emitting edits, disposes every hook, and
// cancels every task. It is safe to call more than once.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.closed = true
	if root, ok := rt.Scope(ScopeRoot); ok {
		if root.lastNode != nil {
			rt.removeNode(root.lastNode, -1, false, vdom.NoopSink{})
		}
		rt.dropScope(root)
	}
	for id := range rt.tasks {
		rt.cancelTask(id, false)
	}
	rt.cancel()
	rt.logger.Debug("runtime closed")
	return nil
}

// fail terminates the runtime. Only the first fatal error is kept.
func (rt *Runtime) fail(err error) {
	if rt.fatal != nil {
		return
	}
	rt.fatal = fmt.Errorf("%w: %w", ErrTerminated, err)
	rt.logger.Error("runtime terminated", "error", err)
}

func (rt *Runtime) invariant(format string, args ...any) {
	rt.fail(vangoerrors.New("E005").WithDetail(fmt.Sprintf(format, args...)))
}

func (rt *Runtime) pushScope(id ScopeID) { rt.scopeStack = append(rt.scopeStack, id) }

func (rt *Runtime) popScope() { rt.scopeStack = rt.scopeStack[:len(rt.scopeStack)-1] }

func (rt *Runtime) currentScope() *Scope {
	if len(rt.scopeStack) == 0 {
		return nil
	}
	s, _ := rt.Scope(rt.scopeStack[len(rt.scopeStack)-1])
	return s
}

// newScope allocates a scope for comp under parent (nil for the root).
func (rt *Runtime) newScope(parent *Scope, comp renderable) *Scope {
	s := &Scope{
		rt:     rt,
		comp:   comp,
		name:   comp.ComponentName(),
		status: ScopeMounted,
		tasks:  make(map[TaskID]struct{}),
	}
	if parent != nil {
		s.parent = parent.id
		s.height = parent.height + 1
	}
	s.id = ScopeID(rt.scopes.insert(s))
	return s
}

// dropScope unmounts s. Its output must already have been removed.
func (rt *Runtime) dropScope(s *Scope) {
	if s.status == ScopeUnmounted {
		return
	}
	rt.dirty.remove(s.order())
	for id := range s.tasks {
		rt.cancelTask(id, false)
	}
	rt.releaseSuspension(s)
	if s.faultCtx != nil {
		s.faultCtx.forget(s.id)
	}
	s.dispose()
	s.status = ScopeUnmounted
	s.lastNode = nil
	rt.scopes.remove(uint32(s.id))
	rt.logger.Debug("scope unmounted", "scope", uint32(s.id), "component", s.name)
}

// rerunScope re-renders a mounted scope and diffs its output in place.
func (rt *Runtime) rerunScope(id ScopeID, sink vdom.MutationSink) {
	s, ok := rt.Scope(id)
	if !ok {
		return
	}
	old := s.lastNode
	node := rt.runScope(s)
	rt.pushScope(id)
	rt.diffNode(old, node, sink)
	rt.popScope()
	s.lastNode = node
}

// runScope runs the component once and returns the node to mount at its
// position: its output, or a boundary fallback.
func (rt *Runtime) runScope(s *Scope) *vdom.VNode {
	rt.dirty.remove(s.order())
	if s.fault != nil {
		return s.faultCtx.fallbackNode(s.fault)
	}

	start := time.Now()
	s.beginRender()
	node, err := rt.callRender(s)
	s.endRender()
	d := time.Since(start)

	if err == nil {
		rt.releaseSuspension(s)
		s.status = ScopeMounted
		if node == nil {
			node = vdom.Placeholder()
		}
		rt.observer.ScopeRendered(s.id, s.name, d, OutcomeReady)
		return node
	}

	var susp *SuspendedError
	if errors.As(err, &susp) {
		rt.observer.ScopeRendered(s.id, s.name, d, OutcomeSuspended)
		return rt.suspend(s, susp.Task)
	}
	rt.observer.ScopeRendered(s.id, s.name, d, OutcomeFaulted)
	return rt.captureFault(s, err)
}

func (rt *Runtime) callRender(s *Scope) (node *vdom.VNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ve, ok := r.(*vangoerrors.VangoError); ok {
				err = ve
				return
			}
			err = vangoerrors.New("E006").
				WithComponent(s.name).
				WithScope(uint32(s.id)).
				WithDetail(fmt.Sprint(r))
		}
	}()
	return s.comp.render(s)
}

// editCount reads the edit count of sinks that keep one.
func editCount(sink vdom.MutationSink) int {
	if c, ok := sink.(interface{ Len() int }); ok {
		return c.Len()
	}
	return -1
}

func editsSince(sink vdom.MutationSink, before int) int {
	if before < 0 {
		return -1
	}
	return editCount(sink) - before
}

// ProvideRootContext makes value available to every component. It is usually
// called before Rebuild.
func ProvideRootContext[T any](rt *Runtime, value T) T {
	root, ok := rt.Scope(ScopeRoot)
	if !ok {
		return value
	}
	root.provide(reflect.TypeOf((*T)(nil)).Elem(), value)
	return value
}
