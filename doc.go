// Package session binds named, typed fields to an external, long-lived
// key-value store so that values survive repeated re-executions of a UI
// script such as a bubbletea Update loop.
//
// A model is declared once, either explicitly:
//
//	decl := session.Declare("app/profile", "Profile",
//		session.Field("Name", session.Annotate[string]()).Default("anon"),
//		session.Field("Age", session.Deferred("int | Unset")),
//	)
//	model, err := session.Bind(decl, session.WithStore(store))
//
// or from a Go struct whose exported fields describe the session variables:
//
//	type Profile struct {
//		Name string `default:"'anon'"`
//		Age  session.Optional[int]
//	}
//	model, err := session.Bind(session.Struct[Profile](), session.WithStore(store))
//
// Default tags are expressions evaluated once at bind time (expr-lang by
// default, CEL or goja JavaScript via [WithEvaluator]).
//
// Binding produces a frozen registry of accessors. Every read and write goes
// straight to the store under the key
//
//	__{module}.{TypeName}.{Field}__
//
// and the model itself holds no field data. A field without a default reads
// as [Unset] until written; a field with a default reads as that default
// until written, and the default is never copied into the store.
//
// Declarations that mix a default with an `Unset` member, or that have
// neither, produce diagnostics. Diagnostics never change runtime behaviour;
// they can be muted with [WithSuppressDiagnostics] or promoted to a bind
// error with [WithStrictDiagnostics]. The same rule is available at build
// time through the pkg/lint analyzer.
//
// The store is shared by every accessor of a model. The engine assumes a
// single writer per session at a time and provides no isolation between
// overlapping executions; callers own that guarantee.
package session
