package session

import (
	"fmt"
	"reflect"
)

// Var is a typed handle over one field of a model.
type Var[T any] struct {
	acc Accessor
}

// VarOf returns a typed handle over field name of m.
func VarOf[T any](m *Model, name string) (Var[T], error) {
	acc, err := m.Accessor(name)
	if err != nil {
		return Var[T]{}, err
	}
	return Var[T]{acc: acc}, nil
}

// MustVar is VarOf for package-level handles; it panics on unknown names.
func MustVar[T any](m *Model, name string) Var[T] {
	v, err := VarOf[T](m, name)
	if err != nil {
		panic(err)
	}
	return v
}

// Get returns the current value and true, or the zero value and false when
// the field reads as Unset or holds a value that is not a T.
func (v Var[T]) Get() (T, bool) {
	var zero T
	if v.acc == nil {
		return zero, false
	}
	value := v.acc.Read()
	if IsUnset(value) {
		return zero, false
	}
	if value == nil {
		return zero, nilable(reflect.TypeFor[T]())
	}
	typed, ok := value.(T)
	return typed, ok
}

// Value returns the current value or fallback when Get reports false.
func (v Var[T]) Value(fallback T) T {
	if value, ok := v.Get(); ok {
		return value
	}
	return fallback
}

// Set writes value.
func (v Var[T]) Set(value T) {
	v.acc.Write(value)
}

// Clear writes Unset verbatim. The key stays present in the store.
func (v Var[T]) Clear() {
	v.acc.Write(Unset)
}

// Accessor returns the underlying accessor.
func (v Var[T]) Accessor() Accessor { return v.acc }

func (v Var[T]) String() string {
	if v.acc == nil {
		return "session.Var(<nil>)"
	}
	return fmt.Sprintf("session.Var(%s)", v.acc.Key())
}

func nilable(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
