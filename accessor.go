package session

// Accessor binds one field to one key of a store. Accessors are storage
// pass-throughs: they never coerce or validate values.
type Accessor interface {
	Name() string
	Key() string
	Annotation() *Type
	// Default returns the configured default and whether one exists.
	Default() (any, bool)
	// Read returns the stored value, else the default, else Unset. It never
	// writes to the store.
	Read() any
	// Write stores value verbatim, including Unset.
	Write(value any)
	// IsSet reports whether the key is present in the store.
	IsSet() bool
}

type binding struct {
	store      Store
	name       string
	key        string
	annotation *Type
}

func (b *binding) Name() string      { return b.name }
func (b *binding) Key() string       { return b.key }
func (b *binding) Annotation() *Type { return b.annotation }

func (b *binding) Write(value any) {
	b.store.Set(b.key, value)
}

func (b *binding) IsSet() bool {
	_, ok := b.store.Get(b.key)
	return ok
}

type requiredAccessor struct {
	binding
}

// NewRequiredAccessor returns an accessor without a default. Reads of an
// absent key yield Unset.
func NewRequiredAccessor(store Store, name, key string, annotation *Type) Accessor {
	return &requiredAccessor{binding{store: store, name: name, key: key, annotation: annotation}}
}

func (a *requiredAccessor) Default() (any, bool) { return nil, false }

func (a *requiredAccessor) Read() any {
	if value, ok := a.store.Get(a.key); ok {
		return value
	}
	return Unset
}

type defaultedAccessor struct {
	binding
	fallback any
}

// NewDefaultedAccessor returns an accessor whose reads of an absent key
// yield fallback itself.
func NewDefaultedAccessor(store Store, name, key string, annotation *Type, fallback any) Accessor {
	return &defaultedAccessor{
		binding:  binding{store: store, name: name, key: key, annotation: annotation},
		fallback: fallback,
	}
}

func (a *defaultedAccessor) Default() (any, bool) { return a.fallback, true }

func (a *defaultedAccessor) Read() any {
	if value, ok := a.store.Get(a.key); ok {
		return value
	}
	return a.fallback
}
