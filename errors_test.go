package session

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "flag && missing", "Profile.name", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "flag && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Field != "Profile.name" {
		t.Fatalf("expected field metadata, got %q", evalErr.Field)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "Profile.age", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Field != "Profile.age" {
		t.Fatalf("field should be filled, got %q", existing.Field)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	err := wrapEvaluatorError("expr", ErrNoEvaluator)
	if err != ErrNoEvaluator {
		t.Fatalf("expected prefixed error to pass through, got %v", err)
	}
	wrapped := wrapEvaluatorError("cel", errors.New("bad"))
	if !strings.HasPrefix(wrapped.Error(), "session: cel evaluator:") {
		t.Fatalf("expected engine prefix, got %q", wrapped.Error())
	}
}

func TestFieldErrorUnwrapsToNotSessionField(t *testing.T) {
	err := &FieldError{Model: "Profile", Field: "nmae", Suggestion: "name"}
	if !errors.Is(err, ErrNotSessionField) {
		t.Fatalf("expected ErrNotSessionField, got %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "name"`) {
		t.Fatalf("expected suggestion in message, got %q", err.Error())
	}
}
