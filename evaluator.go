package session

import "time"

// EvalContext carries the inputs visible to a default expression.
type EvalContext struct {
	Model    string
	Field    string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Values holds the defaults already evaluated for earlier fields of the
	// same declaration, keyed by field name.
	Values map[string]any
}

func (ctx EvalContext) withDefaultNow() EvalContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx EvalContext) withDefaultMaps() EvalContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Values == nil {
		ctx.Values = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) withDefaults() EvalContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx EvalContext) label() string {
	switch {
	case ctx.Model != "" && ctx.Field != "":
		return ctx.Model + "." + ctx.Field
	case ctx.Field != "":
		return ctx.Field
	case ctx.Model != "":
		return ctx.Model
	default:
		return "unknown"
	}
}

// Evaluator executes default expressions.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledExpr, error)
}

// CompiledExpr is a reusable expression program.
type CompiledExpr interface {
	Evaluate(ctx EvalContext) (any, error)
}
