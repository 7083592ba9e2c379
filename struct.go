package session

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

// Struct derives a declaration from the Go struct type T:
//
//   - module is T's package path, type name is T's name
//   - exported fields become members in declaration order
//   - unexported and embedded fields are private and never bound
//   - `session:"-"` skips a field, `session:"name"` renames it
//   - func-typed fields are declared with Func and never bound
//   - `default:"expr"` sets an inline default evaluated at bind time; an
//     empty tag defaults to the zero value
//
// An Optional[X] field is annotated `X | Unset`. Errors are reported by Bind.
//
// Generic instantiations are named without package qualifiers, so
// Box[time.Time] binds as type "Box[Time]". A model id belongs to the first
// Go type bound under it; binding a distinct type with the same id, such as a
// function-local type sharing a package-level name, fails with
// ErrTypeConflict. Use Declare with an explicit name for those.
func Struct[T any]() Declaration {
	rt := reflect.TypeFor[T]()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return Declaration{goType: rt, err: fmt.Errorf("%w: %s is not a struct type", ErrInvalidName, rt)}
	}
	if rt.Name() == "" {
		return Declaration{goType: rt, err: fmt.Errorf("%w: anonymous struct types have no qualified name", ErrInvalidName)}
	}

	members := make([]Member, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		name, skip := fieldName(sf)
		if skip {
			continue
		}
		if sf.Type.Kind() == reflect.Func {
			members = append(members, Func(name, nil))
			continue
		}
		m := Field(name, Resolved(TypeFromReflect(sf.Type)))
		if expr, ok := sf.Tag.Lookup("default"); ok {
			if strings.TrimSpace(expr) == "" {
				m = m.Default(zeroDefault(sf.Type))
			} else {
				m = m.DefaultExpr(expr)
			}
		}
		members = append(members, m)
	}

	decl := Declare(rt.PkgPath(), structTypeName(rt), members...)
	decl.goType = rt
	return decl
}

var qualifier = regexp.MustCompile(`[\w\-./~]+\.`)

// structTypeName drops package paths from the type arguments of generic
// instantiations.
func structTypeName(rt reflect.Type) string {
	name := rt.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}
	return name[:open] + qualifier.ReplaceAllString(name[open:], "")
}

// structTypes maps model ids derived by Struct to the Go type that first
// bound them.
var structTypes sync.Map

func claimStructType(id string, rt reflect.Type) error {
	if rt == nil {
		return nil
	}
	prev, loaded := structTypes.LoadOrStore(id, rt)
	if loaded && prev.(reflect.Type) != rt {
		return fmt.Errorf("%w: %s is bound to a distinct Go type; use Declare with an explicit name", ErrTypeConflict, id)
	}
	return nil
}

func fieldName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("session")
	if !ok {
		return sf.Name, false
	}
	name, _, _ := strings.Cut(tag, ",")
	name = strings.TrimSpace(name)
	switch name {
	case "-":
		return "", true
	case "":
		return sf.Name, false
	default:
		return name, false
	}
}

// zeroDefault returns the zero value stored for an empty default tag. For
// Optional[X] that is X's zero value.
func zeroDefault(rt reflect.Type) any {
	if elem, ok := optionalElemOf(rt); ok {
		rt = elem
	}
	return reflect.Zero(rt).Interface()
}
