package session

// FieldDescriptor describes one bound field.
type FieldDescriptor struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Type        string `json:"type"`
	HasDefault  bool   `json:"has_default"`
	MayBeUnset  bool   `json:"may_be_unset"`
	Default     any    `json:"default,omitempty"`
	DefaultExpr string `json:"default_expr,omitempty"`
}

// Schema describes a bound model.
type Schema struct {
	Module   string            `json:"module"`
	TypeName string            `json:"type_name"`
	Fields   []FieldDescriptor `json:"fields"`
}

// Schema returns the field descriptors in declaration order.
func (m *Model) Schema() Schema {
	fields := make([]FieldDescriptor, len(m.accessors))
	for i, acc := range m.accessors {
		fallback, hasDefault := acc.Default()
		fields[i] = FieldDescriptor{
			Name:        acc.Name(),
			Key:         acc.Key(),
			Type:        acc.Annotation().String(),
			HasDefault:  hasDefault,
			MayBeUnset:  IsOptionalUnset(acc.Annotation()),
			DefaultExpr: m.fields[i].defaultExpr,
		}
		if hasDefault {
			fields[i].Default = fallback
		}
	}
	return Schema{Module: m.module, TypeName: m.typeName, Fields: fields}
}

// Field returns the descriptor of name.
func (s Schema) Field(name string) (FieldDescriptor, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDescriptor{}, false
}
