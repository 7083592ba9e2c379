package session

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-session-state/internal/hydrate"
	"github.com/goliatone/go-session-state/pkg/activity"
)

// Bind turns decl into a Model whose accessors read and write the configured
// store. Every call binds anew; use Define or a Registry to bind once per
// declaration.
//
// Binding never fails because of inconsistent declarations. Those produce
// diagnostics, which are logged and recorded on the model unless suppressed,
// and only become errors under WithStrictDiagnostics.
func Bind(decl Declaration, opts ...Option) (*Model, error) {
	return bind(decl, applyOptions(opts))
}

func bind(decl Declaration, cfg bindConfig) (*Model, error) {
	if decl.err != nil {
		return nil, decl.err
	}
	if err := validateDeclaration(decl); err != nil {
		return nil, err
	}
	if err := claimStructType(decl.ID(), decl.goType); err != nil {
		return nil, err
	}

	store, err := cfg.resolveStore()
	if err != nil {
		return nil, fmt.Errorf("session: bind %s: %w", decl.ID(), err)
	}

	scope, err := declarationScope(decl)
	if err != nil {
		return nil, err
	}

	m := &Model{
		module:   decl.module,
		typeName: decl.typeName,
		goType:   decl.goType,
		store:    store,
		index:    map[string]int{},
		cfg:      cfg,
	}
	evaluated := map[string]any{}

	for _, member := range decl.members {
		if isPrivate(member.name) {
			continue
		}
		switch member.kind {
		case MemberField:
			annotation, err := ResolveAnnotation(member.annotation, scope)
			if err != nil {
				return nil, withField(err, member.name)
			}
			if member.annotation.IsZero() {
				annotation = inferAnnotation(member.value)
			}
			fallback, err := cfg.defaultFor(m, member, annotation, evaluated)
			if err != nil {
				return nil, err
			}
			m.install(member.name, annotation, member.HasDefault(), fallback, member.defaultExpr)
		case MemberValue:
			if !bindableValue(member.value) {
				continue
			}
			if _, ok := m.index[member.name]; ok {
				continue
			}
			evaluated[member.name] = member.value
			m.install(member.name, inferAnnotation(member.value), true, member.value, "")
		}
	}

	if !cfg.suppress {
		m.diagnostics = m.diagnose()
	}
	m.report()

	if cfg.strict && len(m.diagnostics) > 0 {
		return nil, &DiagnosticsError{Model: m.ID(), Diagnostics: m.Diagnostics()}
	}
	return m, nil
}

func (cfg bindConfig) resolveStore() (Store, error) {
	if cfg.store != nil {
		return cfg.store, nil
	}
	if cfg.factory == nil {
		return nil, ErrStoreRequired
	}
	store := cfg.factory()
	if store == nil {
		return nil, ErrNilStore
	}
	return store, nil
}

func validateDeclaration(decl Declaration) error {
	if !validModuleName(decl.module) {
		return fmt.Errorf("%w: module %q", ErrInvalidName, decl.module)
	}
	if !validSegment(decl.typeName) {
		return fmt.Errorf("%w: type name %q must be non-empty without dots or spaces", ErrInvalidName, decl.typeName)
	}
	seen := make(map[string]struct{}, len(decl.members))
	for _, member := range decl.members {
		if member.kind == 0 {
			return fmt.Errorf("%w: zero member in %s", ErrInvalidName, decl.ID())
		}
		if _, ok := seen[member.name]; ok {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, decl.ID(), member.name)
		}
		seen[member.name] = struct{}{}
		if isPrivate(member.name) || member.kind == MemberFunc || member.kind == MemberComputed {
			continue
		}
		if !validSegment(member.name) {
			return fmt.Errorf("%w: field %q of %s must be non-empty without dots or spaces", ErrInvalidName, member.name, decl.ID())
		}
	}
	return nil
}

// declarationScope layers the declaration's aliases over its namespace.
func declarationScope(decl Declaration) (*Namespace, error) {
	parent := decl.namespace
	if parent == nil {
		parent = Universe()
	}
	scope := parent.Child(decl.ID())
	for _, member := range decl.members {
		if member.kind != MemberAlias {
			continue
		}
		t, err := ResolveAnnotation(member.annotation, scope)
		if err != nil {
			return nil, withField(err, member.name)
		}
		scope.Define(member.name, t)
	}
	return scope, nil
}

func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

// bindableValue reports whether an unannotated value is a field rather than
// a method or an accessor installed elsewhere.
func bindableValue(value any) bool {
	if _, ok := value.(Accessor); ok {
		return false
	}
	if value == nil {
		return true
	}
	return reflect.TypeOf(value).Kind() != reflect.Func
}

func inferAnnotation(value any) *Type {
	if value == nil {
		return TypeOf[any]()
	}
	if IsUnset(value) {
		return TypeUnset
	}
	return TypeFromReflect(reflect.TypeOf(value))
}

func withField(err error, field string) error {
	if annErr, ok := err.(*AnnotationError); ok && annErr.Field == "" {
		annErr.Field = field
		return annErr
	}
	return err
}

// defaultFor returns the inline default of member, evaluating a default
// expression when present.
func (cfg *bindConfig) defaultFor(m *Model, member Member, annotation *Type, evaluated map[string]any) (any, error) {
	if member.hasValue {
		evaluated[member.name] = member.value
		return member.value, nil
	}
	if member.defaultExpr == "" {
		return nil, nil
	}
	raw, err := cfg.evaluateDefault(EvalContext{
		Model:  m.ID(),
		Field:  member.name,
		Values: copyValues(evaluated),
	}, member.defaultExpr)
	if err != nil {
		return nil, err
	}
	value, err := hydrate.Coerce(raw, annotation.ReflectType())
	if err != nil {
		return nil, wrapEvaluationError("", member.defaultExpr, m.ID()+"."+member.name, err)
	}
	evaluated[member.name] = value
	return value, nil
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}

func (m *Model) install(name string, annotation *Type, hasDefault bool, fallback any, expr string) {
	key := FormatKey(m.module, m.typeName, name)
	var acc Accessor
	if hasDefault {
		acc = NewDefaultedAccessor(m.store, name, key, annotation, fallback)
	} else {
		acc = NewRequiredAccessor(m.store, name, key, annotation)
	}
	m.index[name] = len(m.accessors)
	m.accessors = append(m.accessors, acc)
	m.fields = append(m.fields, fieldMeta{defaultExpr: expr})
}

func (m *Model) diagnose() []Diagnostic {
	var out []Diagnostic
	for _, acc := range m.accessors {
		_, hasDefault := acc.Default()
		mayBeUnset := IsOptionalUnset(acc.Annotation())
		switch {
		case hasDefault && mayBeUnset:
			out = append(out, newDiagnostic(CodeRedundantUnset, m.ID(), acc.Name(), acc.Key(), acc.Annotation()))
		case !hasDefault && !mayBeUnset:
			out = append(out, newDiagnostic(CodeAmbiguousUnset, m.ID(), acc.Name(), acc.Key(), acc.Annotation()))
		}
	}
	return out
}

// report logs diagnostics and notifies activity hooks. Hook failures never
// fail the bind.
func (m *Model) report() {
	logger := m.cfg.diagnosticLogger()
	for _, d := range m.diagnostics {
		logger.LogDiagnostic(d)
	}

	emitter := m.cfg.emitter()
	if !emitter.Enabled() {
		return
	}
	ctx := m.cfg.context()
	for _, d := range m.diagnostics {
		_ = emitter.Emit(ctx, activity.BuildFieldDiagnosticEvent(activity.SessionEventInput{
			Model:   d.Model,
			Field:   d.Field,
			Key:     d.Key,
			Code:    string(d.Code),
			Message: d.Message,
		}))
	}
	_ = emitter.Emit(ctx, activity.BuildModelBoundEvent(activity.SessionEventInput{
		Model:  m.ID(),
		Fields: len(m.accessors),
	}))
}
