// Package clone copies the container parts of stored values so a holder can
// mutate its copy without touching the original.
package clone

import "reflect"

// Value returns a copy of value in which maps, slices and arrays are copied
// recursively. Pointers, channels and funcs keep their identity and structs
// are copied by value, so cyclic graphs reached through pointers are never
// walked. A container that refers back to itself is copied once and the
// copy refers back to itself.
func Value[T any](value T) T {
	rv := reflect.ValueOf(&value).Elem()
	c := copier{seen: map[visit]reflect.Value{}}
	copied := c.deep(rv)
	if !copied.IsValid() {
		var zero T
		return zero
	}
	out := reflect.New(rv.Type()).Elem()
	out.Set(copied)
	result, _ := out.Interface().(T)
	return result
}

type visit struct {
	ptr uintptr
	len int
	typ reflect.Type
}

type copier struct {
	seen map[visit]reflect.Value
}

func (c copier) deep(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := c.deep(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = clone
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), c.deep(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{ptr: v.Pointer(), len: v.Len(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.seen[key] = clone
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.deep(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.deep(v.Index(i)))
		}
		return clone
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
