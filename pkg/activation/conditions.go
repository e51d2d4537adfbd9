package activation

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ci-and-cd/topinfra-maven-sub001/layering"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/predicate"
)

// Activation property names recognised by the built-in conditions.
const (
	MarkerExpression = "ci.activation.expr"
	MarkerDockerfile = "ci.activation.dockerfile"
	MarkerPackaging  = "ci.activation.packaging"

	// EngineProperty is the profile property selecting the expression engine.
	EngineProperty = "ci.activation.engine"
)

func markerValue(profile *model.Profile, marker string) (string, bool) {
	if profile == nil || profile.Activation.PropertyName() != marker {
		return "", false
	}
	return profile.Activation.Property.Value, true
}

// ExpressionCondition evaluates the activation property value as a predicate
// expression. The engine is chosen per profile; evaluators are kept per
// engine and project directory because builtins resolve files against it.
type ExpressionCondition struct {
	evaluators sync.Map
	logger     predicate.EvaluationLogger
}

func NewExpressionCondition(logger predicate.EvaluationLogger) *ExpressionCondition {
	return &ExpressionCondition{logger: logger}
}

func (c *ExpressionCondition) Name() string { return "expression" }

func (c *ExpressionCondition) CacheResults() bool { return true }

func (c *ExpressionCondition) Configured(profile *model.Profile) bool {
	_, ok := markerValue(profile, MarkerExpression)
	return ok
}

func (c *ExpressionCondition) Evaluate(_ context.Context, profile *model.Profile, d *model.Descriptor, actx Context) (bool, error) {
	expression, _ := markerValue(profile, MarkerExpression)
	engine, _ := profile.Properties.Get(EngineProperty)
	evaluator, err := c.evaluator(engine, d.Basedir())
	if err != nil {
		return false, err
	}
	result, err := evaluator.Evaluate(RuleContextFor(profile, d, actx), expression)
	if err != nil {
		return false, err
	}
	return predicate.AsBool(result)
}

type evaluatorKey struct {
	engine  string
	basedir string
}

func (c *ExpressionCondition) evaluator(engine, basedir string) (predicate.Evaluator, error) {
	key := evaluatorKey{engine: strings.ToLower(strings.TrimSpace(engine)), basedir: basedir}
	if cached, ok := c.evaluators.Load(key); ok {
		return cached.(predicate.Evaluator), nil
	}
	options := []predicate.Option{
		predicate.WithProgramCache(predicate.NewProgramCache()),
		predicate.WithFunctions(predicate.DefaultFunctions(basedir)),
	}
	if c.logger != nil {
		options = append(options, predicate.WithEvaluationLogger(c.logger))
	}
	evaluator, err := predicate.ForEngine(key.engine, options...)
	if err != nil {
		return nil, err
	}
	actual, _ := c.evaluators.LoadOrStore(key, evaluator)
	return actual.(predicate.Evaluator), nil
}

// RuleContextFor builds the bindings an expression sees. Properties merge
// system over user over descriptor properties.
func RuleContextFor(profile *model.Profile, d *model.Descriptor, actx Context) predicate.RuleContext {
	merged := layering.MergeLayers(actx.SystemProperties, actx.UserProperties, d.Properties.Map())
	properties := make(map[string]any, len(merged))
	for key, value := range merged {
		properties[key] = value
	}
	profileProperties := map[string]any{}
	for key, value := range profile.Properties.Map() {
		profileProperties[key] = value
	}
	return predicate.RuleContext{
		Project: map[string]any{
			"groupId":    d.GroupID,
			"artifactId": d.ArtifactID,
			"version":    d.Version,
			"packaging":  d.Packaging,
			"name":       d.Name,
		},
		Properties: properties,
		Profile: map[string]any{
			"id":         profile.ID,
			"source":     profile.Source,
			"properties": profileProperties,
		},
		Basedir: d.Basedir(),
	}
}

// DockerfileCondition is active for projects with a Dockerfile that are not
// aggregators. The activation value may name another file, relative to the
// project directory.
type DockerfileCondition struct{}

func (DockerfileCondition) Name() string { return "dockerfile" }

func (DockerfileCondition) CacheResults() bool { return true }

func (DockerfileCondition) Configured(profile *model.Profile) bool {
	_, ok := markerValue(profile, MarkerDockerfile)
	return ok
}

func (DockerfileCondition) Evaluate(_ context.Context, profile *model.Profile, d *model.Descriptor, _ Context) (bool, error) {
	if d.Packaging == "pom" {
		return false, nil
	}
	name, _ := markerValue(profile, MarkerDockerfile)
	if name == "" || name == "true" {
		name = "Dockerfile"
	}
	info, err := os.Stat(filepath.Join(d.Basedir(), filepath.FromSlash(name)))
	return err == nil && !info.IsDir(), nil
}

// PackagingCondition is active when the packaging is one of a comma separated
// list. Verdicts are cheap to recompute and not cached.
type PackagingCondition struct{}

func (PackagingCondition) Name() string { return "packaging" }

func (PackagingCondition) CacheResults() bool { return false }

func (PackagingCondition) Configured(profile *model.Profile) bool {
	_, ok := markerValue(profile, MarkerPackaging)
	return ok
}

func (PackagingCondition) Evaluate(_ context.Context, profile *model.Profile, d *model.Descriptor, _ Context) (bool, error) {
	list, _ := markerValue(profile, MarkerPackaging)
	var packagings []string
	for _, entry := range strings.Split(list, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			packagings = append(packagings, entry)
		}
	}
	return slices.Contains(packagings, d.Packaging), nil
}
