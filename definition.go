package session

import (
	"fmt"
	"reflect"
	"sync"
)

// Definition binds a declaration at most once. The first call to Model runs
// Bind; later calls return the cached model and error.
type Definition struct {
	decl  Declaration
	opts  []Option
	once  sync.Once
	model *Model
	err   error
}

// Define prepares decl for a single lazy bind. A store factory passed in
// opts is invoked by that bind only.
func Define(decl Declaration, opts ...Option) *Definition {
	copied := make([]Option, len(opts))
	copy(copied, opts)
	return &Definition{decl: decl, opts: copied}
}

// Model binds on first use and returns the cached result.
func (d *Definition) Model() (*Model, error) {
	d.once.Do(func() {
		d.model, d.err = Bind(d.decl, d.opts...)
	})
	return d.model, d.err
}

// MustModel is Model for package-level variables; it panics on error.
func (d *Definition) MustModel() *Model {
	m, err := d.Model()
	if err != nil {
		panic(err)
	}
	return m
}

// Declaration returns the declaration being bound.
func (d *Definition) Declaration() Declaration { return d.decl }

// Registry keeps one bound model per (module, type name). Registering the
// same declaration again returns the model bound the first time; a
// declaration for a different Go type under a registered id is an error.
type Registry struct {
	mu     sync.Mutex
	opts   []Option
	models map[string]*Model
	types  map[string]reflect.Type
	order  []string
}

// NewRegistry creates a registry whose binds use opts before any
// per-registration options.
func NewRegistry(opts ...Option) *Registry {
	copied := make([]Option, len(opts))
	copy(copied, opts)
	return &Registry{opts: copied, models: map[string]*Model{}, types: map[string]reflect.Type{}}
}

// Register binds decl unless a model with the same id is already present.
func (r *Registry) Register(decl Declaration, opts ...Option) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := decl.ID()
	if m, ok := r.models[id]; ok {
		if r.types[id] != decl.goType {
			return nil, fmt.Errorf("%w: %s registered for %v, got %v", ErrTypeConflict, id, r.types[id], decl.goType)
		}
		return m, nil
	}
	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)
	m, err := Bind(decl, all...)
	if err != nil {
		return nil, err
	}
	if r.models == nil {
		r.models = map[string]*Model{}
	}
	if r.types == nil {
		r.types = map[string]reflect.Type{}
	}
	r.models[id] = m
	r.types[id] = decl.goType
	r.order = append(r.order, id)
	return m, nil
}

// Lookup returns the model registered for module and type name.
func (r *Registry) Lookup(module, typeName string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[module+"."+typeName]
	return m, ok
}

// Models returns registered models in registration order.
func (r *Registry) Models() []*Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Model, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// MustRegister is Register for package-level variables; it panics on error.
func (r *Registry) MustRegister(decl Declaration, opts ...Option) *Model {
	m, err := r.Register(decl, opts...)
	if err != nil {
		panic(fmt.Errorf("session: register %s: %w", decl.ID(), err))
	}
	return m
}
