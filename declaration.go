package session

import "reflect"

// MemberKind classifies a declaration member.
type MemberKind int

const (
	// MemberField is an annotated field, optionally with an inline default.
	MemberField MemberKind = iota + 1
	// MemberValue is an unannotated field whose value is its default.
	MemberValue
	// MemberFunc is a method-like member. Never bound.
	MemberFunc
	// MemberComputed is a derived property. Never bound.
	MemberComputed
	// MemberAlias is a type alias declared in the model body. Never bound.
	MemberAlias
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberValue:
		return "value"
	case MemberFunc:
		return "func"
	case MemberComputed:
		return "computed"
	case MemberAlias:
		return "alias"
	default:
		return "unknown"
	}
}

// Member is one entry of a model declaration.
type Member struct {
	kind       MemberKind
	name       string
	annotation Annotation
	value      any
	hasValue   bool
	// defaultExpr is evaluated at bind time when hasValue is false.
	defaultExpr string
}

// Field declares an annotated member. Chain Default to give it an inline
// default value.
func Field(name string, annotation Annotation) Member {
	return Member{kind: MemberField, name: name, annotation: annotation}
}

// Default returns a copy of m carrying value as its inline default.
func (m Member) Default(value any) Member {
	m.value = value
	m.hasValue = true
	m.defaultExpr = ""
	return m
}

// DefaultExpr returns a copy of m whose default is the result of evaluating
// expr with the bind-time evaluator.
func (m Member) DefaultExpr(expr string) Member {
	m.value = nil
	m.hasValue = false
	m.defaultExpr = expr
	return m
}

// Value declares an unannotated member whose value is its default. The
// annotation is inferred from the value.
func Value(name string, value any) Member {
	return Member{kind: MemberValue, name: name, value: value, hasValue: true}
}

// Func declares a method-like member that is never bound to the store.
func Func(name string, fn any) Member {
	return Member{kind: MemberFunc, name: name, value: fn, hasValue: true}
}

// Computed declares a derived property that is never bound to the store.
func Computed(name string, fn any) Member {
	return Member{kind: MemberComputed, name: name, value: fn, hasValue: true}
}

// Alias declares a type alias local to the declaration. Deferred annotations
// of the same declaration can refer to it by name.
func Alias(name string, annotation Annotation) Member {
	return Member{kind: MemberAlias, name: name, annotation: annotation}
}

// Name returns the member name.
func (m Member) Name() string { return m.name }

// Kind returns the member kind.
func (m Member) Kind() MemberKind { return m.kind }

// HasDefault reports whether the member carries an inline default, either a
// value or an expression.
func (m Member) HasDefault() bool { return m.hasValue || m.defaultExpr != "" }

// Declaration describes a model type: its defining module, its qualified
// type name and its members in declaration order.
type Declaration struct {
	module    string
	typeName  string
	members   []Member
	namespace *Namespace
	goType    reflect.Type
	err       error
}

// Declare builds a declaration.
func Declare(module, typeName string, members ...Member) Declaration {
	copied := make([]Member, len(members))
	copy(copied, members)
	return Declaration{module: module, typeName: typeName, members: copied}
}

// Namespace returns a copy of d whose deferred annotations resolve against
// ns. Without one they resolve against the universe only.
func (d Declaration) Namespace(ns *Namespace) Declaration {
	d.namespace = ns
	return d
}

// With returns a copy of d with extra members appended.
func (d Declaration) With(members ...Member) Declaration {
	merged := make([]Member, 0, len(d.members)+len(members))
	merged = append(merged, d.members...)
	merged = append(merged, members...)
	d.members = merged
	return d
}

// Module returns the defining module.
func (d Declaration) Module() string { return d.module }

// TypeName returns the qualified type name.
func (d Declaration) TypeName() string { return d.typeName }

// Members returns a copy of the members.
func (d Declaration) Members() []Member {
	out := make([]Member, len(d.members))
	copy(out, d.members)
	return out
}

// GoType returns the struct type a declaration was derived from by Struct,
// or nil.
func (d Declaration) GoType() reflect.Type { return d.goType }

// Err returns the error recorded while building the declaration, if any.
func (d Declaration) Err() error { return d.err }

// ID returns "module.TypeName".
func (d Declaration) ID() string { return d.module + "." + d.typeName }
