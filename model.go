package session

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/agnivade/levenshtein"
)

// Model is a bound declaration: a frozen, ordered table of accessors over one
// store. A Model holds no field values of its own.
type Model struct {
	module      string
	typeName    string
	goType      reflect.Type
	store       Store
	accessors   []Accessor
	fields      []fieldMeta
	index       map[string]int
	diagnostics []Diagnostic
	cfg         bindConfig
}

type fieldMeta struct {
	defaultExpr string
}

// Module returns the defining module.
func (m *Model) Module() string { return m.module }

// TypeName returns the qualified type name.
func (m *Model) TypeName() string { return m.typeName }

// ID returns "module.TypeName".
func (m *Model) ID() string { return m.module + "." + m.typeName }

// Len returns the number of bound fields.
func (m *Model) Len() int { return len(m.accessors) }

// Accessors returns the accessors in declaration order.
func (m *Model) Accessors() []Accessor {
	out := make([]Accessor, len(m.accessors))
	copy(out, m.accessors)
	return out
}

// Names returns the bound field names in declaration order.
func (m *Model) Names() []string {
	out := make([]string, len(m.accessors))
	for i, acc := range m.accessors {
		out[i] = acc.Name()
	}
	return out
}

// Accessor returns the accessor bound to name. Unknown names yield a
// *FieldError wrapping ErrNotSessionField.
func (m *Model) Accessor(name string) (Accessor, error) {
	if i, ok := m.index[name]; ok {
		return m.accessors[i], nil
	}
	return nil, &FieldError{Model: m.ID(), Field: name, Suggestion: m.suggest(name)}
}

// Key returns the store key of field name.
func (m *Model) Key(name string) (string, error) {
	acc, err := m.Accessor(name)
	if err != nil {
		return "", err
	}
	return acc.Key(), nil
}

// Get reads field name.
func (m *Model) Get(name string) (any, error) {
	acc, err := m.Accessor(name)
	if err != nil {
		return nil, err
	}
	return acc.Read(), nil
}

// Set writes value to field name.
func (m *Model) Set(name string, value any) error {
	acc, err := m.Accessor(name)
	if err != nil {
		return err
	}
	acc.Write(value)
	return nil
}

// State returns a read-only view of the store. It has no mutating methods.
func (m *Model) State() ReadOnlyState {
	return ReadOnly(m.store)
}

// MutableState returns the live store. Writes through it are immediately
// visible to the model's accessors.
func (m *Model) MutableState() Store {
	return m.store
}

// Diagnostics returns the diagnostics produced while binding.
func (m *Model) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(m.diagnostics))
	copy(out, m.diagnostics)
	return out
}

// Reset deletes the keys of the named fields, or of every field when no
// names are given, so reads fall back to defaults or Unset.
func (m *Model) Reset(names ...string) error {
	if len(names) == 0 {
		for _, acc := range m.accessors {
			m.store.Delete(acc.Key())
		}
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		acc, err := m.Accessor(name)
		if err != nil {
			return err
		}
		keys = append(keys, acc.Key())
	}
	for _, key := range keys {
		m.store.Delete(key)
	}
	return nil
}

// Values reads every field, keyed by field name.
func (m *Model) Values() map[string]any {
	out := make(map[string]any, len(m.accessors))
	for _, acc := range m.accessors {
		out[acc.Name()] = acc.Read()
	}
	return out
}

func (m *Model) String() string {
	return fmt.Sprintf("session.Model(%s, %d fields)", m.ID(), len(m.accessors))
}

// suggest returns the closest field name within a small edit distance.
func (m *Model) suggest(name string) string {
	if name == "" || len(m.accessors) == 0 {
		return ""
	}
	names := m.Names()
	sort.Strings(names)
	best, bestDist := "", -1
	for _, candidate := range names {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	limit := len(name) / 2
	if limit < 1 {
		limit = 1
	}
	if limit > 3 {
		limit = 3
	}
	if bestDist > limit {
		return ""
	}
	return best
}
