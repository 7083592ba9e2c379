package session

import "encoding/json"

// ValueSource tells where a read value came from.
type ValueSource string

const (
	SourceStore   ValueSource = "store"
	SourceDefault ValueSource = "default"
	SourceUnset   ValueSource = "unset"
)

// Resolution explains a single field read.
type Resolution struct {
	Field       string      `json:"field"`
	Key         string      `json:"key"`
	Source      ValueSource `json:"source"`
	Value       any         `json:"value,omitempty"`
	Annotation  string      `json:"annotation,omitempty"`
	HasDefault  bool        `json:"has_default"`
	DefaultExpr string      `json:"default_expr,omitempty"`
	// StoredUnset is true when the store holds an explicit Unset.
	StoredUnset bool `json:"stored_unset,omitempty"`
}

// Explain reports how field name currently resolves without mutating the
// store.
func (m *Model) Explain(name string) (Resolution, error) {
	acc, err := m.Accessor(name)
	if err != nil {
		return Resolution{}, err
	}
	fallback, hasDefault := acc.Default()
	res := Resolution{
		Field:       acc.Name(),
		Key:         acc.Key(),
		Annotation:  acc.Annotation().String(),
		HasDefault:  hasDefault,
		DefaultExpr: m.fields[m.index[name]].defaultExpr,
	}
	switch stored, ok := m.store.Get(acc.Key()); {
	case ok:
		res.Source = SourceStore
		res.StoredUnset = IsUnset(stored)
		if !res.StoredUnset {
			res.Value = stored
		}
	case hasDefault:
		res.Source = SourceDefault
		res.Value = fallback
	default:
		res.Source = SourceUnset
	}
	return res, nil
}

// ToJSON serialises the resolution for logging.
func (r Resolution) ToJSON() ([]byte, error) {
	type alias Resolution
	return json.Marshal(alias(r))
}
