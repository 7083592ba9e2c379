package session

import "strings"

const keyAffix = "__"

// FormatKey derives the store key for one field:
//
//	__{module}.{typeName}.{field}__
//
// The format is observable by anything inspecting the raw store and must stay
// byte-for-byte stable. Bind rejects type and field names containing '.', so
// distinct triples never share a key.
func FormatKey(module, typeName, field string) string {
	var b strings.Builder
	b.Grow(len(module) + len(typeName) + len(field) + 2 + 2*len(keyAffix))
	b.WriteString(keyAffix)
	b.WriteString(module)
	b.WriteByte('.')
	b.WriteString(typeName)
	b.WriteByte('.')
	b.WriteString(field)
	b.WriteString(keyAffix)
	return b.String()
}

// ParseKey splits a key produced by FormatKey back into its components. The
// module may contain dots; the type and field names are taken from the right.
func ParseKey(key string) (module, typeName, field string, ok bool) {
	if len(key) <= 2*len(keyAffix) || !strings.HasPrefix(key, keyAffix) || !strings.HasSuffix(key, keyAffix) {
		return "", "", "", false
	}
	body := key[len(keyAffix) : len(key)-len(keyAffix)]
	fieldAt := strings.LastIndexByte(body, '.')
	if fieldAt <= 0 || fieldAt == len(body)-1 {
		return "", "", "", false
	}
	rest := body[:fieldAt]
	typeAt := strings.LastIndexByte(rest, '.')
	if typeAt <= 0 || typeAt == len(rest)-1 {
		return "", "", "", false
	}
	return rest[:typeAt], rest[typeAt+1:], body[fieldAt+1:], true
}

func validModuleName(name string) bool {
	return strings.TrimSpace(name) != "" && !strings.ContainsAny(name, " \t\n")
}

func validSegment(name string) bool {
	return name != "" && !strings.ContainsAny(name, ". \t\n")
}
