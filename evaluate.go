package session

import (
	"fmt"
	"strings"
	"time"
)

// Evaluator engine names accepted by EvaluatorByName.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// EvaluatorByName builds one of the bundled evaluators. The js engine is only
// available when built with the js_eval tag.
func EvaluatorByName(name string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js evaluator requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, name)
	}
}

func (cfg *bindConfig) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	evaluator, err := EvaluatorByName(EngineExpr, cfg.programCache, cfg.functions)
	if err != nil {
		return nil, err
	}
	cfg.evaluator = evaluator
	return evaluator, nil
}

// evaluateDefault runs a default expression and logs the attempt.
func (cfg *bindConfig) evaluateDefault(ctx EvalContext, expr string) (any, error) {
	evaluator, err := cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx.Args = cfg.evalArgs
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.label(), evalErr)
	cfg.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Field:    ctx.label(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	default:
		if isJSEvaluator(e) {
			return EngineJS
		}
		return "custom"
	}
}
