package session

import (
	"fmt"
	"log"
)

// DiagnosticCode identifies a declaration inconsistency.
type DiagnosticCode string

const (
	// CodeRedundantUnset marks a field with a default whose annotation also
	// admits Unset. The default means reads never yield Unset.
	CodeRedundantUnset DiagnosticCode = "redundant_unset"
	// CodeAmbiguousUnset marks a field with neither a default nor Unset in
	// its annotation. Reads may yield Unset without the type saying so.
	CodeAmbiguousUnset DiagnosticCode = "ambiguous_unset"
)

// Diagnostic is a non-fatal finding produced while binding a declaration.
type Diagnostic struct {
	Code    DiagnosticCode
	Model   string
	Field   string
	Key     string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s.%s: %s", d.Code, d.Model, d.Field, d.Message)
}

func newDiagnostic(code DiagnosticCode, model, field, key string, annotation *Type) Diagnostic {
	var msg string
	switch code {
	case CodeRedundantUnset:
		msg = fmt.Sprintf("field %q has a default value, so Unset in its type %q is never observed", field, annotation)
	case CodeAmbiguousUnset:
		msg = fmt.Sprintf("field %q has no default value, but its type %q does not include Unset", field, annotation)
	}
	return Diagnostic{Code: code, Model: model, Field: field, Key: key, Message: msg}
}

// DiagnosticLogger receives binding diagnostics.
type DiagnosticLogger interface {
	LogDiagnostic(Diagnostic)
}

// DiagnosticLoggerFunc adapts a function to DiagnosticLogger.
type DiagnosticLoggerFunc func(Diagnostic)

// LogDiagnostic implements DiagnosticLogger.
func (f DiagnosticLoggerFunc) LogDiagnostic(d Diagnostic) {
	if f != nil {
		f(d)
	}
}

type noopDiagnosticLogger struct{}

func (noopDiagnosticLogger) LogDiagnostic(Diagnostic) {}

// stdDiagnosticLogger writes one warning line per diagnostic through the
// standard logger.
type stdDiagnosticLogger struct {
	logger *log.Logger
}

func (l stdDiagnosticLogger) LogDiagnostic(d Diagnostic) {
	if l.logger == nil {
		log.Printf("session: warning: %s", d)
		return
	}
	l.logger.Printf("session: warning: %s", d)
}

// NewStdDiagnosticLogger returns a DiagnosticLogger writing to logger, or to
// the standard logger when logger is nil.
func NewStdDiagnosticLogger(logger *log.Logger) DiagnosticLogger {
	return stdDiagnosticLogger{logger: logger}
}
