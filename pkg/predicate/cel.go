package predicate

import (
	"time"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

const EngineCEL = "cel"

type celEvaluator struct {
	cfg config
	env *celgo.Env
	err error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Registered
// functions are declared with one and two dynamic arguments.
func NewCELEvaluator(options ...Option) Evaluator {
	e := &celEvaluator{cfg: newConfig(options)}
	e.env, e.err = e.buildEnv()
	return e
}

func (e *celEvaluator) Engine() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineCEL, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celCompiledRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", e.err)
	}
	if cached, ok := e.cfg.cached(EngineCEL, expression); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	e.cfg.store(EngineCEL, expression, program)
	return program, nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	options := []celgo.EnvOption{
		celgo.Variable("project", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("properties", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("profile", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("basedir", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	for _, name := range e.cfg.registry.Names() {
		options = append(options, celgo.Function(name,
			celgo.Overload(name+"_dyn", []*celgo.Type{celgo.DynType}, celgo.DynType,
				celgo.UnaryBinding(func(arg ref.Val) ref.Val {
					return e.call(name, arg)
				})),
			celgo.Overload(name+"_dyn_dyn", []*celgo.Type{celgo.DynType, celgo.DynType}, celgo.DynType,
				celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return e.call(name, lhs, rhs)
				})),
		))
	}
	return celgo.NewEnv(options...)
}

func (e *celEvaluator) call(name string, values ...ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, value := range values {
		args = append(args, value.Value())
	}
	result, err := e.cfg.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	program    celgo.Program
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	start := time.Now()
	out, _, err := r.program.Eval(ctx.bindings())
	err = wrapEvaluationError(EngineCEL, r.expression, ctx.scopeLabel(), err)
	r.evaluator.cfg.observe(EngineCEL, r.expression, ctx, start, err)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
