package session

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Annotation is a field's declared type, either already resolved or
// captured as text to be evaluated later.
type Annotation struct {
	resolved *Type
	deferred string
}

// Resolved wraps an already resolved type.
func Resolved(t *Type) Annotation { return Annotation{resolved: t} }

// Deferred captures a forward reference written in Go type syntax, e.g.
// "Node | Unset" or "map[string][]Item". Names are looked up when the
// declaration is bound, not when Deferred is called.
func Deferred(expr string) Annotation { return Annotation{deferred: strings.TrimSpace(expr)} }

// Annotate returns the annotation of T.
func Annotate[T any]() Annotation { return Resolved(TypeOf[T]()) }

// IsZero reports whether the annotation is absent.
func (a Annotation) IsZero() bool { return a.resolved == nil && a.deferred == "" }

// IsDeferred reports whether the annotation still needs evaluation.
func (a Annotation) IsDeferred() bool { return a.resolved == nil && a.deferred != "" }

func (a Annotation) String() string {
	if a.resolved != nil {
		return a.resolved.String()
	}
	return a.deferred
}

// ResolveAnnotation evaluates a deferred annotation against ns. Resolved
// annotations are returned unchanged.
func ResolveAnnotation(a Annotation, ns *Namespace) (*Type, error) {
	if a.resolved != nil {
		return a.resolved, nil
	}
	if a.deferred == "" {
		return nil, nil
	}
	if ns == nil {
		ns = Universe()
	}
	expr, err := parser.ParseExpr(a.deferred)
	if err != nil {
		return nil, &AnnotationError{Expr: a.deferred, Err: fmt.Errorf("%w: %v", ErrInvalidAnnotation, err)}
	}
	t, err := resolveExpr(expr, ns)
	if err != nil {
		return nil, &AnnotationError{Expr: a.deferred, Err: err}
	}
	return t, nil
}

func resolveExpr(expr ast.Expr, ns *Namespace) (*Type, error) {
	switch node := expr.(type) {
	case *ast.Ident:
		return lookupName(node.Name, ns)
	case *ast.SelectorExpr:
		pkg, ok := node.X.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported selector", ErrInvalidAnnotation)
		}
		return lookupName(pkg.Name+"."+node.Sel.Name, ns)
	case *ast.ParenExpr:
		return resolveExpr(node.X, ns)
	case *ast.BinaryExpr:
		if node.Op != token.OR {
			return nil, fmt.Errorf("%w: operator %s", ErrInvalidAnnotation, node.Op)
		}
		left, err := resolveExpr(node.X, ns)
		if err != nil {
			return nil, err
		}
		right, err := resolveExpr(node.Y, ns)
		if err != nil {
			return nil, err
		}
		return UnionOf(left, right), nil
	case *ast.ArrayType:
		if node.Len != nil {
			return nil, fmt.Errorf("%w: fixed-size arrays", ErrInvalidAnnotation)
		}
		elem, err := resolveExpr(node.Elt, ns)
		if err != nil {
			return nil, err
		}
		return SliceOf(elem), nil
	case *ast.MapType:
		key, err := resolveExpr(node.Key, ns)
		if err != nil {
			return nil, err
		}
		elem, err := resolveExpr(node.Value, ns)
		if err != nil {
			return nil, err
		}
		return MapOf(key, elem), nil
	case *ast.StarExpr:
		elem, err := resolveExpr(node.X, ns)
		if err != nil {
			return nil, err
		}
		return PointerTo(elem), nil
	case *ast.IndexExpr:
		return resolveGeneric(node.X, []ast.Expr{node.Index}, ns)
	case *ast.IndexListExpr:
		return resolveGeneric(node.X, node.Indices, ns)
	case *ast.InterfaceType:
		if node.Methods == nil || len(node.Methods.List) == 0 {
			return lookupName("any", ns)
		}
	}
	return nil, fmt.Errorf("%w: unsupported expression %T", ErrInvalidAnnotation, expr)
}

func resolveGeneric(base ast.Expr, indices []ast.Expr, ns *Namespace) (*Type, error) {
	ident, ok := base.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported generic base", ErrInvalidAnnotation)
	}
	fn, ok := ns.LookupGeneric(ident.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedAnnotation, ident.Name)
	}
	args := make([]*Type, 0, len(indices))
	for _, index := range indices {
		arg, err := resolveExpr(index, ns)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	t, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnnotation, err)
	}
	return t, nil
}

func lookupName(name string, ns *Namespace) (*Type, error) {
	if t, ok := ns.Lookup(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolvedAnnotation, name)
}

// AnnotationError reports a deferred annotation that could not be resolved.
type AnnotationError struct {
	Field string
	Expr  string
	Err   error
}

func (e *AnnotationError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("session: annotation")
	if e.Field != "" {
		b.WriteString(" for field ")
		b.WriteString(e.Field)
	}
	fmt.Fprintf(&b, " %q", e.Expr)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AnnotationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
