package predicate

import (
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

const EngineExpr = "expr"

type exprEvaluator struct {
	cfg config
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(options ...Option) Evaluator {
	return &exprEvaluator{cfg: newConfig(options)}
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineExpr, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if cached, ok := e.cfg.cached(EngineExpr, expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{"now": time.Time{}}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.cfg.registry.Names() {
		options = append(options, exprlang.Function(name, e.call(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, "", err)
	}
	e.cfg.store(EngineExpr, expression, program)
	return program, nil
}

func (e *exprEvaluator) call(name string) func(...any) (any, error) {
	registry := e.cfg.registry
	return func(arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	start := time.Now()
	result, err := exprlang.Run(r.program, ctx.bindings())
	err = wrapEvaluationError(EngineExpr, r.expression, ctx.scopeLabel(), err)
	r.evaluator.cfg.observe(EngineExpr, r.expression, ctx, start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}
