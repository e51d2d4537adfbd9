package predicate

import (
	"fmt"
	"strings"
)

const EngineJS = "js"

// ForEngine returns an evaluator for name. An empty name selects expr.
func ForEngine(name string, options ...Option) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineExpr:
		return NewExprEvaluator(options...), nil
	case EngineCEL:
		return NewCELEvaluator(options...), nil
	case EngineJS, "javascript":
		if !jsAvailable() {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrEngineUnavailable, name)
		}
		return NewJSEvaluator(options...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// Engines lists the engines compiled into the binary.
func Engines() []string {
	engines := []string{EngineExpr, EngineCEL}
	if jsAvailable() {
		engines = append(engines, EngineJS)
	}
	return engines
}
