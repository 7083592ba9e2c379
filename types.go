package session

import (
	"reflect"
	"strings"
)

// TypeKind classifies a resolved annotation.
type TypeKind int

const (
	KindNamed TypeKind = iota + 1
	KindUnion
	KindSlice
	KindMap
	KindPointer
)

func (k TypeKind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindUnion:
		return "union"
	case KindSlice:
		return "slice"
	case KindMap:
		return "map"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Type is a resolved field annotation. Values are immutable once built.
type Type struct {
	kind    TypeKind
	name    string
	reflect reflect.Type
	args    []*Type
}

// TypeUnset is the annotation of the [Unset] sentinel.
var TypeUnset = Named("Unset", reflect.TypeFor[UnsetType]())

// Named builds a named annotation. rt may be nil when the name has no Go
// runtime counterpart.
func Named(name string, rt reflect.Type) *Type {
	return &Type{kind: KindNamed, name: name, reflect: rt}
}

// SliceOf builds `[]elem`.
func SliceOf(elem *Type) *Type {
	return &Type{kind: KindSlice, args: []*Type{elem}}
}

// MapOf builds `map[key]elem`.
func MapOf(key, elem *Type) *Type {
	return &Type{kind: KindMap, args: []*Type{key, elem}}
}

// PointerTo builds `*elem`.
func PointerTo(elem *Type) *Type {
	return &Type{kind: KindPointer, args: []*Type{elem}}
}

// UnionOf builds `a | b | ...`. Nested unions are flattened and duplicate
// members dropped; a single remaining member is returned as is.
func UnionOf(members ...*Type) *Type {
	flat := make([]*Type, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	var add func(t *Type)
	add = func(t *Type) {
		if t == nil {
			return
		}
		if t.kind == KindUnion {
			for _, member := range t.args {
				add(member)
			}
			return
		}
		id := t.String()
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		flat = append(flat, t)
	}
	for _, member := range members {
		add(member)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &Type{kind: KindUnion, args: flat}
	}
}

// TypeOf returns the annotation describing T. Optional[X] maps to `X | Unset`.
func TypeOf[T any]() *Type {
	return TypeFromReflect(reflect.TypeFor[T]())
}

// TypeFromReflect converts a Go runtime type into an annotation.
func TypeFromReflect(rt reflect.Type) *Type {
	if rt == nil {
		return nil
	}
	if elem, ok := optionalElemOf(rt); ok {
		return UnionOf(TypeFromReflect(elem), TypeUnset)
	}
	if rt == TypeUnset.reflect {
		return TypeUnset
	}
	if rt.Name() == "" {
		switch rt.Kind() {
		case reflect.Slice:
			t := SliceOf(TypeFromReflect(rt.Elem()))
			t.reflect = rt
			return t
		case reflect.Map:
			t := MapOf(TypeFromReflect(rt.Key()), TypeFromReflect(rt.Elem()))
			t.reflect = rt
			return t
		case reflect.Pointer:
			t := PointerTo(TypeFromReflect(rt.Elem()))
			t.reflect = rt
			return t
		case reflect.Interface:
			if rt.NumMethod() == 0 {
				return Named("any", rt)
			}
		}
	}
	return Named(rt.String(), rt)
}

// Kind reports the annotation kind.
func (t *Type) Kind() TypeKind {
	if t == nil {
		return 0
	}
	return t.kind
}

// Name returns the name of a named annotation.
func (t *Type) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Members returns the union members, or the type itself for non-unions.
func (t *Type) Members() []*Type {
	if t == nil {
		return nil
	}
	if t.kind != KindUnion {
		return []*Type{t}
	}
	out := make([]*Type, len(t.args))
	copy(out, t.args)
	return out
}

// Elem returns the element annotation of slices, maps and pointers.
func (t *Type) Elem() *Type {
	if t == nil {
		return nil
	}
	switch t.kind {
	case KindSlice, KindPointer:
		return t.args[0]
	case KindMap:
		return t.args[1]
	default:
		return nil
	}
}

// Key returns the key annotation of a map.
func (t *Type) Key() *Type {
	if t == nil || t.kind != KindMap {
		return nil
	}
	return t.args[0]
}

// Equal compares two annotations structurally.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.String() == other.String()
}

// ReflectType returns the Go runtime type the annotation stands for, or nil
// when there is none. For `T | Unset` it returns T's runtime type.
func (t *Type) ReflectType() reflect.Type {
	if t == nil {
		return nil
	}
	if t.reflect != nil {
		return t.reflect
	}
	switch t.kind {
	case KindSlice:
		if elem := t.args[0].ReflectType(); elem != nil {
			return reflect.SliceOf(elem)
		}
	case KindMap:
		key, elem := t.args[0].ReflectType(), t.args[1].ReflectType()
		if key != nil && elem != nil && key.Comparable() {
			return reflect.MapOf(key, elem)
		}
	case KindPointer:
		if elem := t.args[0].ReflectType(); elem != nil {
			return reflect.PointerTo(elem)
		}
	case KindUnion:
		var only *Type
		for _, member := range t.args {
			if member.isUnset() {
				continue
			}
			if only != nil {
				return nil
			}
			only = member
		}
		return only.ReflectType()
	}
	return nil
}

func (t *Type) String() string {
	if t == nil {
		return ""
	}
	switch t.kind {
	case KindNamed:
		return t.name
	case KindSlice:
		return "[]" + t.args[0].String()
	case KindMap:
		return "map[" + t.args[0].String() + "]" + t.args[1].String()
	case KindPointer:
		return "*" + t.args[0].String()
	case KindUnion:
		parts := make([]string, len(t.args))
		for i, member := range t.args {
			parts[i] = member.String()
		}
		return strings.Join(parts, " | ")
	default:
		return "<invalid>"
	}
}

func (t *Type) isUnset() bool {
	if t == nil || t.kind != KindNamed {
		return false
	}
	if t == TypeUnset {
		return true
	}
	return t.reflect != nil && t.reflect == TypeUnset.reflect
}

// IsOptionalUnset reports whether a resolved annotation is a union that has
// [Unset] among its members.
func IsOptionalUnset(t *Type) bool {
	if t == nil || t.kind != KindUnion {
		return false
	}
	for _, member := range t.args {
		if member.isUnset() {
			return true
		}
	}
	return false
}
