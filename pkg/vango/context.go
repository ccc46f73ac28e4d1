package vango

import (
	"fmt"
	"reflect"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

// Contexts are keyed by type: a scope provides at most one value per type,
// and lookups walk from a scope towards the root.

func (s *Scope) provide(key reflect.Type, value any) {
	if s.contexts == nil {
		s.contexts = make(map[reflect.Type]any)
	}
	s.contexts[key] = value
}

// ProvideContext makes value available to s and its descendants, replacing
// any value of the same type s provided before.
func ProvideContext[T any](s *Scope, value T) T {
	s.provide(reflect.TypeOf((*T)(nil)).Elem(), value)
	return value
}

// ConsumeContext returns the nearest value of type T provided by s or one of
// its ancestors.
func ConsumeContext[T any](s *Scope) (T, bool) {
	return lookupContext[T](s.rt, s.id, true)
}

// UseContext returns the nearest value of type T and caches it for later
// renders. The scope faults with E002 if no ancestor provides one.
func UseContext[T any](s *Scope) T {
	return s.useSlot(HookContext, func() any {
		v, ok := ConsumeContext[T](s)
		if !ok {
			panic(vangoerrors.New("E002").
				WithComponent(s.name).
				WithScope(uint32(s.id)).
				WithDetail(fmt.Sprintf("no ancestor provides %s", reflect.TypeOf((*T)(nil)).Elem())))
		}
		return v
	}).(T)
}

// lookupContext walks from start to the root. When search is false there is
// nothing to walk.
func lookupContext[T any](rt *Runtime, start ScopeID, search bool) (T, bool) {
	var zero T
	if !search {
		return zero, false
	}
	key := reflect.TypeOf((*T)(nil)).Elem()
	s, ok := rt.Scope(start)
	for ok {
		if v, found := s.contexts[key]; found {
			return v.(T), true
		}
		if s.id == ScopeRoot {
			break
		}
		s, ok = rt.Scope(s.parent)
	}
	return zero, false
}
