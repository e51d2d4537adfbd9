//go:build !js_eval

package predicate

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(options ...Option) Evaluator {
	_ = newConfig(options)
	return nil
}

func jsAvailable() bool { return false }
