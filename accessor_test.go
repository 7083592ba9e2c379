package session

import (
	"reflect"
	"sync"
	"testing"
)

func TestRequiredAccessorRoundTrip(t *testing.T) {
	store := NewMapStore()
	acc := NewRequiredAccessor(store, "age", "__m.T.age__", TypeOf[Optional[int]]())

	if got := acc.Read(); !IsUnset(got) {
		t.Fatalf("expected Unset before write, got %#v", got)
	}
	if acc.IsSet() {
		t.Fatalf("expected key absent before write")
	}

	values := []any{30, nil, "", 0, Unset, []string{"a"}, map[string]any{"k": 1}}
	for _, v := range values {
		acc.Write(v)
		if got := acc.Read(); !reflect.DeepEqual(got, v) {
			t.Fatalf("round trip of %#v returned %#v", v, got)
		}
		if !acc.IsSet() {
			t.Fatalf("expected key present after writing %#v", v)
		}
	}
}

func TestWritingUnsetStoresItVerbatim(t *testing.T) {
	store := NewMapStore()
	acc := NewDefaultedAccessor(store, "name", "__m.T.name__", TypeOf[string](), "anon")

	acc.Write(Unset)

	stored, ok := store.Get("__m.T.name__")
	if !ok || !IsUnset(stored) {
		t.Fatalf("expected Unset stored under key, got %#v ok=%v", stored, ok)
	}
	if got := acc.Read(); !IsUnset(got) {
		t.Fatalf("expected explicit Unset to shadow the default, got %#v", got)
	}
}

func TestDefaultedAccessorDoesNotWriteBack(t *testing.T) {
	store := NewMapStore()
	acc := NewDefaultedAccessor(store, "name", "__m.T.name__", TypeOf[string](), "anon")

	for i := 0; i < 3; i++ {
		if got := acc.Read(); got != "anon" {
			t.Fatalf("expected default, got %#v", got)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("expected reads to leave the store empty, got %v", store.Snapshot())
	}
	if acc.IsSet() {
		t.Fatalf("expected IsSet false while only the default is visible")
	}

	acc.Write("ana")
	if got := acc.Read(); got != "ana" {
		t.Fatalf("expected stored value, got %#v", got)
	}
	if fallback, ok := acc.Default(); !ok || fallback != "anon" {
		t.Fatalf("expected default retained, got %#v ok=%v", fallback, ok)
	}
}

type linkedNode struct {
	Next *linkedNode
	mu   sync.Mutex
	hits int
}

func TestDefaultedAccessorReturnsConfiguredDefault(t *testing.T) {
	store := NewMapStore()
	def := &linkedNode{}
	acc := NewDefaultedAccessor(store, "n", "__m.T.n__", TypeOf[*linkedNode](), def)

	got, ok := acc.Read().(*linkedNode)
	if !ok || got != def {
		t.Fatalf("expected the configured default %p, got %#v", def, acc.Read())
	}
	got.mu.Lock()
	got.hits++
	got.mu.Unlock()
	if def.hits != 1 {
		t.Fatalf("expected changes through the read value to reach the default, got %d", def.hits)
	}

	tags := []string{"a"}
	slices := NewDefaultedAccessor(store, "tags", "__m.T.tags__", TypeOf[[]string](), tags)
	if got := slices.Read().([]string); &got[0] != &tags[0] {
		t.Fatalf("expected the default slice itself")
	}
}

func TestDefaultedAccessorCyclicDefault(t *testing.T) {
	n := &linkedNode{}
	n.Next = n

	m, err := Bind(Declare("app", "Graph", Value("n", n)), WithStore(NewMapStore()))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	acc, err := m.Accessor("n")
	if err != nil {
		t.Fatalf("accessor: %v", err)
	}
	got, ok := acc.Read().(*linkedNode)
	if !ok || got != n || got.Next != n {
		t.Fatalf("expected the cyclic default returned as is, got %#v", acc.Read())
	}
}

func TestUnsetIsDistinct(t *testing.T) {
	for _, v := range []any{nil, "", 0, false, struct{}{}} {
		if IsUnset(v) {
			t.Fatalf("expected %#v not to be Unset", v)
		}
		if any(Unset) == v {
			t.Fatalf("expected Unset != %#v", v)
		}
	}
	if Unset.String() != "Unset" {
		t.Fatalf("unexpected string %q", Unset.String())
	}
}

func TestReadOnlyStateHasNoSetter(t *testing.T) {
	view := ReadOnly(NewMapStoreFrom(map[string]any{"k": 1}))
	if _, ok := any(view).(Store); ok {
		t.Fatalf("read-only view must not satisfy Store")
	}
	if _, ok := any(view).(interface{ Set(string, any) }); ok {
		t.Fatalf("read-only view must not expose Set")
	}
	if got, ok := view.Get("k"); !ok || got != 1 {
		t.Fatalf("expected read-through, got %#v ok=%v", got, ok)
	}
	if view.Len() != 1 || !view.Contains("k") || len(view.Keys()) != 1 {
		t.Fatalf("unexpected view contents: %v", view.Keys())
	}
}
