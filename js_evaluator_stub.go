//go:build !js_eval

package session

// NewJSEvaluator returns nil unless built with the js_eval tag, and
// EvaluatorByName reports ErrNoEvaluator for the js engine.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}

func isJSEvaluator(Evaluator) bool { return false }
