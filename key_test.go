package session

import "testing"

func TestFormatKeyLayout(t *testing.T) {
	if got := FormatKey("moda", "A", "x"); got != "__moda.A.x__" {
		t.Fatalf("expected __moda.A.x__, got %q", got)
	}
	if got := FormatKey("github.com/acme/app", "Profile", "name"); got != "__github.com/acme/app.Profile.name__" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestFormatKeyDeterministicAndDistinct(t *testing.T) {
	triples := [][3]string{
		{"moda", "A", "x"},
		{"modb", "A", "x"},
		{"moda", "B", "x"},
		{"moda", "A", "y"},
		{"moda.A", "x", "y"},
		{"mod", "aA", "x"},
	}
	seen := map[string][3]string{}
	for _, tr := range triples {
		key := FormatKey(tr[0], tr[1], tr[2])
		if again := FormatKey(tr[0], tr[1], tr[2]); again != key {
			t.Fatalf("expected stable key, got %q then %q", key, again)
		}
		if prev, ok := seen[key]; ok {
			t.Fatalf("key %q shared by %v and %v", key, prev, tr)
		}
		seen[key] = tr
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	cases := [][3]string{
		{"moda", "A", "x"},
		{"github.com/acme/app", "Profile", "name"},
		{"a.b.c", "T", "f"},
	}
	for _, tc := range cases {
		module, typeName, field, ok := ParseKey(FormatKey(tc[0], tc[1], tc[2]))
		if !ok {
			t.Fatalf("expected %v to parse", tc)
		}
		if module != tc[0] || typeName != tc[1] || field != tc[2] {
			t.Fatalf("expected %v, got %q %q %q", tc, module, typeName, field)
		}
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "____", "moda.A.x", "__moda.A.x", "__moda.A__", "__.A.x__", "__moda..x__", "__moda.A.__"} {
		if _, _, _, ok := ParseKey(key); ok {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}
