// Package predicate evaluates profile activation expressions. Three engines
// are available: expr-lang (default), CEL and JavaScript (goja, behind the
// js_eval build tag). Every engine sees the same bindings:
//
//	project     map with groupId, artifactId, version, packaging, name
//	properties  effective descriptor properties merged with session properties
//	profile     map with id, source and the profile's own properties
//	basedir     project directory
//	now         evaluation timestamp
//	args        caller supplied values
package predicate

import "time"

// RuleContext carries the inputs of one evaluation.
type RuleContext struct {
	Project    map[string]any
	Properties map[string]any
	Profile    map[string]any
	Basedir    string
	Now        *time.Time
	Args       map[string]any
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Engine() string
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Project == nil {
		ctx.Project = map[string]any{}
	}
	if ctx.Properties == nil {
		ctx.Properties = map[string]any{}
	}
	if ctx.Profile == nil {
		ctx.Profile = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

// scopeLabel names the evaluation target in errors and logs.
func (ctx RuleContext) scopeLabel() string {
	id, _ := ctx.Profile["id"].(string)
	artifact, _ := ctx.Project["artifactId"].(string)
	switch {
	case id != "" && artifact != "":
		return id + "@" + artifact
	case id != "":
		return id
	case artifact != "":
		return "@" + artifact
	default:
		return ctx.Basedir
	}
}

var bindingNames = []string{"project", "properties", "profile", "basedir", "now", "args"}

func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"project":    ctx.Project,
		"properties": ctx.Properties,
		"profile":    ctx.Profile,
		"basedir":    ctx.Basedir,
		"now":        *ctx.Now,
		"args":       ctx.Args,
	}
}
