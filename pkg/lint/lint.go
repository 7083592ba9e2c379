// Package lint reports field storage diagnostics at build time for struct
// types passed to session.Struct[T].
//
// A bound field either has a default or may be Unset. The analyzer flags
// exported struct fields that carry both (redundant_unset: a `default` tag
// on a session.Optional field) or neither (ambiguous_unset: no `default`
// tag on a non-Optional field). Rules for which fields are bound follow
// session.Struct: embedded, unexported, func-typed and `session:"-"`
// fields are ignored, as are fields renamed to a name starting with "_".
package lint

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"reflect"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// SessionPath is the import path whose Struct function is checked.
const SessionPath = "github.com/goliatone/go-session-state"

// Diagnostic codes, matching the runtime codes reported by Bind.
const (
	CodeRedundantUnset = "redundant_unset"
	CodeAmbiguousUnset = "ambiguous_unset"
)

var Analyzer = &analysis.Analyzer{
	Name:     "sessionstruct",
	Doc:      "report session.Struct fields whose default and Unset handling disagree",
	URL:      "https://pkg.go.dev/github.com/goliatone/go-session-state/pkg/lint",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	// keyed by field position so each field is reported once per package
	reported := map[token.Pos]bool{}

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		id := calleeIdent(call.Fun)
		if id == nil {
			return
		}
		fn, ok := pass.TypesInfo.Uses[id].(*types.Func)
		if !ok || fn.Pkg() == nil || fn.Pkg().Path() != SessionPath || fn.Name() != "Struct" {
			return
		}
		inst, ok := pass.TypesInfo.Instances[id]
		if !ok || inst.TypeArgs == nil || inst.TypeArgs.Len() != 1 {
			return
		}
		checkStruct(pass, call, inst.TypeArgs.At(0), reported)
	})
	return nil, nil
}

func calleeIdent(expr ast.Expr) *ast.Ident {
	switch e := expr.(type) {
	case *ast.IndexExpr:
		expr = e.X
	case *ast.IndexListExpr:
		expr = e.X
	default:
		return nil
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return e
	case *ast.SelectorExpr:
		return e.Sel
	}
	return nil
}

func checkStruct(pass *analysis.Pass, call *ast.CallExpr, typ types.Type, reported map[token.Pos]bool) {
	for {
		ptr, ok := typ.(*types.Pointer)
		if !ok {
			break
		}
		typ = ptr.Elem()
	}
	named, ok := types.Unalias(typ).(*types.Named)
	if !ok {
		return
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return
	}
	local := named.Obj().Pkg() == pass.Pkg
	qualifier := func(p *types.Package) string {
		if p == pass.Pkg {
			return ""
		}
		return p.Name()
	}

	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if field.Embedded() || !field.Exported() {
			continue
		}
		tag := reflect.StructTag(st.Tag(i))
		name, skip := fieldName(field.Name(), tag)
		if skip || strings.HasPrefix(name, "_") {
			continue
		}
		if _, isFunc := field.Type().Underlying().(*types.Signature); isFunc {
			continue
		}

		_, hasDefault := tag.Lookup("default")
		mayBeUnset := isOptional(field.Type())

		var code, msg string
		switch {
		case hasDefault && mayBeUnset:
			code = CodeRedundantUnset
			msg = fmt.Sprintf("field %q of %s has a default, so Unset in %s is never observed",
				name, named.Obj().Name(), types.TypeString(field.Type(), qualifier))
		case !hasDefault && !mayBeUnset:
			code = CodeAmbiguousUnset
			msg = fmt.Sprintf("field %q of %s has no default, but %s does not include Unset",
				name, named.Obj().Name(), types.TypeString(field.Type(), qualifier))
		default:
			continue
		}

		if reported[field.Pos()] {
			continue
		}
		reported[field.Pos()] = true
		pos := call.Pos()
		if local {
			pos = field.Pos()
		}
		pass.Report(analysis.Diagnostic{Pos: pos, Category: code, Message: code + ": " + msg})
	}
}

func fieldName(goName string, tag reflect.StructTag) (string, bool) {
	value, ok := tag.Lookup("session")
	if !ok {
		return goName, false
	}
	name, _, _ := strings.Cut(value, ",")
	switch name = strings.TrimSpace(name); name {
	case "-":
		return "", true
	case "":
		return goName, false
	default:
		return name, false
	}
}

func isOptional(typ types.Type) bool {
	named, ok := types.Unalias(typ).(*types.Named)
	if !ok {
		return false
	}
	obj := named.Origin().Obj()
	return obj.Name() == "Optional" && obj.Pkg() != nil && obj.Pkg().Path() == SessionPath
}
