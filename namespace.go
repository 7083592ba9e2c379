package session

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// GenericFunc instantiates a generic annotation such as Optional[T].
type GenericFunc func(args ...*Type) (*Type, error)

// Namespace is the definition-time environment deferred annotations are
// resolved against. Lookups walk from the namespace to its parents, ending
// at the universe of predeclared names.
//
// Names may be defined after a declaration has captured the namespace; they
// become visible to every later resolution. This is what makes forward
// references work.
type Namespace struct {
	name     string
	parent   *Namespace
	mu       sync.RWMutex
	types    map[string]*Type
	generics map[string]GenericFunc
}

var (
	universeOnce sync.Once
	universe     *Namespace
)

// Universe returns the shared root namespace holding the predeclared Go
// types, any, error, Unset and Optional.
func Universe() *Namespace {
	universeOnce.Do(func() {
		ns := &Namespace{
			name:     "universe",
			types:    map[string]*Type{},
			generics: map[string]GenericFunc{},
		}
		for _, rt := range []reflect.Type{
			reflect.TypeFor[bool](),
			reflect.TypeFor[string](),
			reflect.TypeFor[int](),
			reflect.TypeFor[int8](),
			reflect.TypeFor[int16](),
			reflect.TypeFor[int32](),
			reflect.TypeFor[int64](),
			reflect.TypeFor[uint](),
			reflect.TypeFor[uint8](),
			reflect.TypeFor[uint16](),
			reflect.TypeFor[uint32](),
			reflect.TypeFor[uint64](),
			reflect.TypeFor[uintptr](),
			reflect.TypeFor[float32](),
			reflect.TypeFor[float64](),
			reflect.TypeFor[complex64](),
			reflect.TypeFor[complex128](),
		} {
			ns.types[rt.Name()] = Named(rt.Name(), rt)
		}
		ns.types["byte"] = ns.types["uint8"]
		ns.types["rune"] = ns.types["int32"]
		ns.types["any"] = Named("any", reflect.TypeFor[any]())
		ns.types["error"] = Named("error", reflect.TypeFor[error]())
		ns.types["Unset"] = TypeUnset
		ns.generics["Optional"] = func(args ...*Type) (*Type, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("Optional takes 1 type argument, got %d", len(args))
			}
			return UnionOf(args[0], TypeUnset), nil
		}
		universe = ns
	})
	return universe
}

// NewNamespace creates a module-level namespace rooted at the universe.
func NewNamespace(name string) *Namespace {
	return Universe().Child(name)
}

// Child creates a nested scope whose lookups fall back to ns.
func (ns *Namespace) Child(name string) *Namespace {
	return &Namespace{
		name:     name,
		parent:   ns,
		types:    map[string]*Type{},
		generics: map[string]GenericFunc{},
	}
}

// Name returns the namespace label.
func (ns *Namespace) Name() string {
	if ns == nil {
		return ""
	}
	return ns.name
}

// Define binds name to t in this scope, replacing any previous binding.
func (ns *Namespace) Define(name string, t *Type) *Namespace {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.types[name] = t
	return ns
}

// DefineGeneric binds a generic annotation constructor.
func (ns *Namespace) DefineGeneric(name string, fn GenericFunc) *Namespace {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.generics[name] = fn
	return ns
}

// DefineType binds name to the annotation of T.
func DefineType[T any](ns *Namespace, name string) *Namespace {
	return ns.Define(name, TypeOf[T]())
}

// Lookup resolves name through the scope chain.
func (ns *Namespace) Lookup(name string) (*Type, bool) {
	for scope := ns; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		t, ok := scope.types[name]
		scope.mu.RUnlock()
		if ok {
			return t, true
		}
	}
	return nil, false
}

// LookupGeneric resolves a generic constructor through the scope chain.
func (ns *Namespace) LookupGeneric(name string) (GenericFunc, bool) {
	for scope := ns; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		fn, ok := scope.generics[name]
		scope.mu.RUnlock()
		if ok {
			return fn, true
		}
	}
	return nil, false
}

// Names lists the names bound directly in this scope.
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	names := make([]string, 0, len(ns.types)+len(ns.generics))
	for name := range ns.types {
		names = append(names, name)
	}
	for name := range ns.generics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
