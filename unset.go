package session

import "reflect"

// UnsetType is the type of [Unset].
type UnsetType struct{}

func (UnsetType) String() string { return "Unset" }

// Unset is the value read from a field that was never written and has no
// default. It is distinct from nil, the empty string and every other value a
// caller can store, and it can itself be written to mark a field as cleared.
var Unset = UnsetType{}

// IsUnset reports whether value is the [Unset] sentinel.
func IsUnset(value any) bool {
	_, ok := value.(UnsetType)
	return ok
}

// Optional is the struct-field spelling of `T | Unset`. Declaring a field as
// Optional[T] tells both the binder and static consumers that reads may
// yield [Unset].
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Value: value, Valid: true}
}

// Get returns the wrapped value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

func (Optional[T]) optionalElem() reflect.Type {
	return reflect.TypeFor[T]()
}

type optionalMarker interface {
	optionalElem() reflect.Type
}

var optionalMarkerType = reflect.TypeFor[optionalMarker]()

// optionalElemOf returns the wrapped type when rt is an Optional instance.
func optionalElemOf(rt reflect.Type) (reflect.Type, bool) {
	if rt == nil || rt.Kind() != reflect.Struct || !rt.Implements(optionalMarkerType) {
		return nil, false
	}
	marker, ok := reflect.Zero(rt).Interface().(optionalMarker)
	if !ok {
		return nil, false
	}
	return marker.optionalElem(), true
}
