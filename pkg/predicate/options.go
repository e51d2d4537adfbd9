package predicate

import (
	"sync"
	"time"
)

// ProgramCache stores compiled programs keyed by expression. Engines prefix
// keys with their name so one cache can serve several engines.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type programCache struct {
	programs sync.Map
}

// NewProgramCache returns a ProgramCache safe for concurrent use.
func NewProgramCache() ProgramCache {
	return &programCache{}
}

func (c *programCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *programCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// LogEvent describes one evaluation.
type LogEvent struct {
	Engine   string
	Expr     string
	Scope    string
	Duration time.Duration
	Err      error
}

// EvaluationLogger records evaluations.
type EvaluationLogger interface {
	LogEvaluation(LogEvent)
}

// EvaluationLoggerFunc adapts a function to EvaluationLogger.
type EvaluationLoggerFunc func(LogEvent)

func (f EvaluationLoggerFunc) LogEvaluation(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type config struct {
	cache    ProgramCache
	registry *FunctionRegistry
	logger   EvaluationLogger
}

// Option configures an evaluator.
type Option func(*config)

func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctions exposes the functions of registry to expressions. The
// registry is copied; later registrations are not seen.
func WithFunctions(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		cfg.registry = registry.Clone()
	}
}

func WithEvaluationLogger(logger EvaluationLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

func newConfig(options []Option) config {
	cfg := config{}
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}
	return cfg
}

func (cfg config) cached(engine, expr string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(engine + ":" + expr)
}

func (cfg config) store(engine, expr string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(engine+":"+expr, program)
	}
}

func (cfg config) observe(engine, expr string, ctx RuleContext, start time.Time, err error) {
	if cfg.logger == nil {
		return
	}
	cfg.logger.LogEvaluation(LogEvent{
		Engine:   engine,
		Expr:     expr,
		Scope:    ctx.scopeLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
}
