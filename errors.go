package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotSessionField is returned when a name is not a bound field.
	ErrNotSessionField = errors.New("session: not a session field")
	// ErrStoreRequired is returned when Bind has neither a store nor a factory.
	ErrStoreRequired = errors.New("session: store or store factory required")
	// ErrNilStore is returned when a store factory yields nil.
	ErrNilStore = errors.New("session: store factory returned nil")
	// ErrDuplicateField is returned when a declaration repeats a member name.
	ErrDuplicateField = errors.New("session: duplicate field")
	// ErrInvalidName is returned for module, type or field names that would
	// make keys ambiguous.
	ErrInvalidName = errors.New("session: invalid name")
	// ErrInvalidAnnotation is returned for annotation text outside the
	// supported type syntax.
	ErrInvalidAnnotation = errors.New("session: invalid annotation")
	// ErrUnresolvedAnnotation is returned when a deferred annotation still
	// names an unbound type at bind time.
	ErrUnresolvedAnnotation = errors.New("session: unresolved annotation")
	// ErrNoEvaluator is returned when a default expression needs an evaluator
	// that is not available.
	ErrNoEvaluator = errors.New("session: evaluator not configured")
	// ErrTypeConflict is returned when two distinct Go types derive the same
	// model id, as function-local types of one name in one package do.
	ErrTypeConflict = errors.New("session: model id claimed by another type")
)

// FieldError reports a lookup of a name that is not a bound field.
type FieldError struct {
	Model      string
	Field      string
	Suggestion string
	Err        error
}

func (e *FieldError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("session: %s has no field %q", e.Model, e.Field)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrNotSessionField) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return ErrNotSessionField
	}
	return e.Err
}

// DiagnosticsError is returned by Bind in strict mode when the declaration
// produced diagnostics.
type DiagnosticsError struct {
	Model       string
	Diagnostics []Diagnostic
}

func (e *DiagnosticsError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		parts[i] = d.Field + ": " + string(d.Code)
	}
	return fmt.Sprintf("session: %s has %d diagnostic(s): %s", e.Model, len(e.Diagnostics), strings.Join(parts, ", "))
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Field  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("session: %s evaluator %s field=%s: %v", e.Engine, describeExpression(e.Expr), e.Field, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "session:") {
		return err
	}
	return fmt.Errorf("session: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, field string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Field == "" {
			evalErr.Field = field
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Field:  field,
		Err:    err,
	}
}
