package session

import (
	"errors"
	"strings"
	"testing"
)

type diagnosticRecorder struct {
	got []Diagnostic
}

func (r *diagnosticRecorder) LogDiagnostic(d Diagnostic) {
	r.got = append(r.got, d)
}

func profileDeclaration() Declaration {
	return Declare("app", "Profile",
		Field("name", Annotate[string]()).Default("anon"),
		Field("age", Deferred("int | Unset")),
	)
}

func TestBindScenarioProfile(t *testing.T) {
	store := NewMapStore()
	rec := &diagnosticRecorder{}
	m, err := Bind(profileDeclaration(), WithStore(store), WithDiagnosticLogger(rec))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	if got := len(m.Accessors()); got != 2 {
		t.Fatalf("expected 2 accessors, got %d", got)
	}
	name, _ := m.Accessor("name")
	age, _ := m.Accessor("age")
	if got := name.Read(); got != "anon" {
		t.Fatalf("expected default name, got %#v", got)
	}
	if got := age.Read(); !IsUnset(got) {
		t.Fatalf("expected age Unset, got %#v", got)
	}
	age.Write(30)
	if got := age.Read(); got != 30 {
		t.Fatalf("expected 30, got %#v", got)
	}
	if len(rec.got) != 0 {
		t.Fatalf("expected no diagnostics, got %v", rec.got)
	}
	if got := m.Names(); got[0] != "name" || got[1] != "age" {
		t.Fatalf("expected declaration order, got %v", got)
	}
}

func TestBindScenarioAmbiguousCount(t *testing.T) {
	for _, suppress := range []bool{false, true} {
		rec := &diagnosticRecorder{}
		m, err := Bind(
			Declare("app", "Counter", Field("count", Annotate[int]())),
			WithStore(NewMapStore()),
			WithDiagnosticLogger(rec),
			WithSuppressDiagnostics(suppress),
		)
		if err != nil {
			t.Fatalf("bind: %v", err)
		}
		want := 1
		if suppress {
			want = 0
		}
		if len(rec.got) != want || len(m.Diagnostics()) != want {
			t.Fatalf("suppress=%v: expected %d diagnostics, got logged=%d recorded=%d", suppress, want, len(rec.got), len(m.Diagnostics()))
		}
		if want == 1 && rec.got[0].Code != CodeAmbiguousUnset {
			t.Fatalf("expected ambiguous_unset, got %s", rec.got[0].Code)
		}
		count, _ := m.Accessor("count")
		if got := count.Read(); !IsUnset(got) {
			t.Fatalf("suppress=%v: expected Unset, got %#v", suppress, got)
		}
	}
}

func TestBindRedundantUnsetDiagnostic(t *testing.T) {
	rec := &diagnosticRecorder{}
	m, err := Bind(
		Declare("app", "Prefs",
			Field("theme", Deferred("string | Unset")).Default("dark"),
			Field("lang", Annotate[string]()).Default("en"),
			Field("tz", Annotate[Optional[string]]()),
		),
		WithStore(NewMapStore()),
		WithDiagnosticLogger(rec),
	)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if len(rec.got) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %v", rec.got)
	}
	d := rec.got[0]
	if d.Code != CodeRedundantUnset || d.Field != "theme" || d.Key != "__app.Prefs.theme__" || d.Model != "app.Prefs" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	theme, _ := m.Accessor("theme")
	if got := theme.Read(); got != "dark" {
		t.Fatalf("expected default despite diagnostic, got %#v", got)
	}
}

func TestBindStrictDiagnostics(t *testing.T) {
	decl := Declare("app", "Counter", Field("count", Annotate[int]()))

	_, err := Bind(decl, WithStore(NewMapStore()), WithStrictDiagnostics(true), WithDiagnosticLogger(nil))
	var diagErr *DiagnosticsError
	if !errors.As(err, &diagErr) {
		t.Fatalf("expected DiagnosticsError, got %v", err)
	}
	if len(diagErr.Diagnostics) != 1 || !strings.Contains(err.Error(), "count: ambiguous_unset") {
		t.Fatalf("unexpected strict error %v", err)
	}

	if _, err := Bind(decl, WithStore(NewMapStore()), WithStrictDiagnostics(true), WithSuppressDiagnostics(true)); err != nil {
		t.Fatalf("expected suppression to win over strict mode, got %v", err)
	}
}

func TestBindScenarioModulesDoNotCollide(t *testing.T) {
	store := NewMapStore()
	a, err := Bind(Declare("moda", "A", Value("x", 0)), WithStore(store))
	if err != nil {
		t.Fatalf("bind A: %v", err)
	}
	b, err := Bind(Declare("modb", "B", Value("x", 0)), WithStore(store))
	if err != nil {
		t.Fatalf("bind B: %v", err)
	}

	ax, _ := a.Accessor("x")
	bx, _ := b.Accessor("x")
	if ax.Key() != "__moda.A.x__" || bx.Key() != "__modb.B.x__" {
		t.Fatalf("unexpected keys %q %q", ax.Key(), bx.Key())
	}
	ax.Write(7)
	if got := bx.Read(); got != 0 {
		t.Fatalf("expected B unaffected, got %#v", got)
	}
}

func TestBindRequiresStore(t *testing.T) {
	if _, err := Bind(profileDeclaration()); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
	_, err := Bind(profileDeclaration(), WithStoreFactory(func() Store { return nil }))
	if !errors.Is(err, ErrNilStore) {
		t.Fatalf("expected ErrNilStore, got %v", err)
	}
}

func TestBindInvokesFactoryOnce(t *testing.T) {
	calls := 0
	store := NewMapStore()
	m, err := Bind(profileDeclaration(), WithStoreFactory(func() Store {
		calls++
		return store
	}))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	for i := 0; i < 3; i++ {
		_ = m.Accessors()[0].Read()
		m.Accessors()[1].Write(i)
	}
	if calls != 1 {
		t.Fatalf("expected factory called once, got %d", calls)
	}
	if m.MutableState() != Store(store) {
		t.Fatalf("expected model bound to factory store")
	}
}

func TestBindSkipsPrivateAndNonFieldMembers(t *testing.T) {
	m, err := Bind(Declare("app", "Widget",
		Field("_cache", Annotate[int]()),
		Value("_secret", "x"),
		Value("title", "untitled"),
		Value("onClick", func() {}),
		Func("render", func() string { return "" }),
		Computed("label", func() string { return "" }),
		Alias("ID", Annotate[string]()),
		Value("bound", NewRequiredAccessor(NewMapStore(), "other", "__x.Y.other__", nil)),
		Field("owner", Deferred("ID | Unset")),
	), WithStore(NewMapStore()))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	names := m.Names()
	if len(names) != 2 || names[0] != "title" || names[1] != "owner" {
		t.Fatalf("expected [title owner], got %v", names)
	}
	owner, _ := m.Accessor("owner")
	if owner.Annotation().String() != "string | Unset" {
		t.Fatalf("expected alias to resolve, got %s", owner.Annotation())
	}
	title, _ := m.Accessor("title")
	if title.Annotation().String() != "string" {
		t.Fatalf("expected inferred annotation, got %s", title.Annotation())
	}
}

func TestBindListAccessorCount(t *testing.T) {
	m, err := Bind(Declare("app", "Mixed",
		Field("a", Annotate[int]()),
		Field("b", Annotate[Optional[int]]()),
		Value("c", "x"),
		Field("d", Annotate[string]()).Default(""),
		Field("_e", Annotate[int]()),
		Func("f", nil),
	), WithStore(NewMapStore()), WithDiagnosticLogger(nil))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got := len(m.Accessors()); got != 4 {
		t.Fatalf("expected 4 public bound fields, got %d", got)
	}
}

func TestBindForwardReferenceDefinedAfterDeclaration(t *testing.T) {
	ns := NewNamespace("app")
	decl := Declare("app", "Tree", Field("root", Deferred("*Node | Unset"))).Namespace(ns)

	if _, err := Bind(decl, WithStore(NewMapStore())); !errors.Is(err, ErrUnresolvedAnnotation) {
		t.Fatalf("expected unresolved annotation before definition, got %v", err)
	}

	DefineType[node](ns, "Node")
	m, err := Bind(decl, WithStore(NewMapStore()))
	if err != nil {
		t.Fatalf("bind after definition: %v", err)
	}
	root, _ := m.Accessor("root")
	if !IsOptionalUnset(root.Annotation()) {
		t.Fatalf("expected optional annotation, got %s", root.Annotation())
	}
}

func TestBindUnresolvedAnnotationNamesField(t *testing.T) {
	_, err := Bind(Declare("app", "T", Field("x", Deferred("Missing"))), WithStore(NewMapStore()))
	var annErr *AnnotationError
	if !errors.As(err, &annErr) || annErr.Field != "x" {
		t.Fatalf("expected AnnotationError for field x, got %v", err)
	}
}

func TestBindRejectsInvalidDeclarations(t *testing.T) {
	cases := map[string]Declaration{
		"empty module":    Declare("", "T", Value("x", 1)),
		"dotted type":     Declare("app", "Outer.Inner", Value("x", 1)),
		"dotted field":    Declare("app", "T", Value("a.b", 1)),
		"empty field":     Declare("app", "T", Value("", 1)),
		"duplicate field": Declare("app", "T", Value("x", 1), Field("x", Annotate[int]())),
	}
	for name, decl := range cases {
		if _, err := Bind(decl, WithStore(NewMapStore())); err == nil {
			t.Fatalf("%s: expected bind error", name)
		}
	}
	_, err := Bind(Declare("app", "T", Value("x", 1), Value("x", 2)), WithStore(NewMapStore()))
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestBindDefaultExpressions(t *testing.T) {
	m, err := Bind(Declare("app", "Greeting",
		Value("first", "Ada"),
		Field("greeting", Annotate[string]()).DefaultExpr(`"hello " + first`),
		Field("limit", Annotate[int]()).DefaultExpr("args.base * 2"),
	), WithStore(NewMapStore()), WithDefaultArgs(map[string]any{"base": 21}))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	greeting, _ := m.Get("greeting")
	if greeting != "hello Ada" {
		t.Fatalf("expected evaluated greeting, got %#v", greeting)
	}
	limit, _ := m.Get("limit")
	if limit != 42 {
		t.Fatalf("expected coerced int 42, got %#v (%T)", limit, limit)
	}
}

func TestBindDefaultExpressionErrors(t *testing.T) {
	_, err := Bind(Declare("app", "Broken",
		Field("n", Annotate[int]()).DefaultExpr("1 +"),
	), WithStore(NewMapStore()))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != EngineExpr {
		t.Fatalf("expected expr engine, got %q", evalErr.Engine)
	}
}
