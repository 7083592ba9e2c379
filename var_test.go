package session

import "testing"

func TestVarTypedAccess(t *testing.T) {
	m := bindProfile(t, NewMapStore())
	name := MustVar[string](m, "name")
	age := MustVar[int](m, "age")

	if got, ok := name.Get(); !ok || got != "anon" {
		t.Fatalf("expected default, got %q ok=%v", got, ok)
	}
	if _, ok := age.Get(); ok {
		t.Fatalf("expected Unset age to report false")
	}
	if got := age.Value(18); got != 18 {
		t.Fatalf("expected fallback, got %d", got)
	}

	age.Set(30)
	if got, ok := age.Get(); !ok || got != 30 {
		t.Fatalf("expected 30, got %d ok=%v", got, ok)
	}

	age.Clear()
	if _, ok := age.Get(); ok {
		t.Fatalf("expected cleared age to report false")
	}
	if !age.Accessor().IsSet() {
		t.Fatalf("expected Clear to store Unset rather than delete")
	}

	_ = m.Set("age", "thirty")
	if _, ok := age.Get(); ok {
		t.Fatalf("expected mismatched type to report false")
	}
}

func TestVarNilValues(t *testing.T) {
	m, err := Bind(Declare("app", "Ptrs",
		Field("p", Annotate[Optional[*int]]()),
		Field("n", Annotate[Optional[int]]()),
	), WithStore(NewMapStore()))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	_ = m.Set("p", nil)
	_ = m.Set("n", nil)

	if got, ok := MustVar[*int](m, "p").Get(); !ok || got != nil {
		t.Fatalf("expected nil pointer accepted, got %v ok=%v", got, ok)
	}
	if _, ok := MustVar[int](m, "n").Get(); ok {
		t.Fatalf("expected nil not to count as an int")
	}
}

func TestVarOfUnknownField(t *testing.T) {
	m := bindProfile(t, NewMapStore())
	if _, err := VarOf[int](m, "nope"); err == nil {
		t.Fatalf("expected error")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustVar to panic")
		}
	}()
	MustVar[int](m, "nope")
}
