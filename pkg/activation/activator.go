package activation

import (
	"context"
	"fmt"
	"path/filepath"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/modelcache"
)

// Condition is the domain predicate of a custom activator.
type Condition interface {
	Name() string
	// Configured reports whether profile carries the marker of this condition.
	Configured(profile *model.Profile) bool
	Evaluate(ctx context.Context, profile *model.Profile, descriptor *model.Descriptor, actx Context) (bool, error)
	// CacheResults reports whether verdicts may be memoised per profile and
	// descriptor.
	CacheResults() bool
}

// Reporter receives activation problems. *activity.Emitter satisfies it.
type Reporter interface {
	Emit(ctx context.Context, event activity.Event) error
}

// ActivationError is returned when a condition fails. Activation errors are
// never turned into an inactive verdict.
type ActivationError struct {
	Activator string
	Profile   string
	Project   string
	Err       error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activation: %s activator failed for profile %s in %s: %v", e.Activator, e.Profile, e.Project, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// CustomActivator evaluates one Condition against effective descriptors.
type CustomActivator struct {
	condition Condition
	resolver  *ModelResolver
	verdicts  *modelcache.Cache
	logger    opts.Logger
	reporter  Reporter
}

type ActivatorOption func(*CustomActivator)

func WithActivatorLogger(logger opts.Logger) ActivatorOption {
	return func(a *CustomActivator) {
		a.logger = logger
	}
}

func WithReporter(reporter Reporter) ActivatorOption {
	return func(a *CustomActivator) {
		a.reporter = reporter
	}
}

func NewCustomActivator(condition Condition, resolver *ModelResolver, options ...ActivatorOption) *CustomActivator {
	a := &CustomActivator{
		condition: condition,
		resolver:  resolver,
		verdicts:  modelcache.New(),
	}
	for _, option := range options {
		option(a)
	}
	a.logger = opts.LoggerOrNop(a.logger)
	return a
}

func (a *CustomActivator) Name() string { return a.condition.Name() }

// PresentInConfig reports whether profile is meant for this activator.
func (a *CustomActivator) PresentInConfig(profile *model.Profile, _ Context) bool {
	return a.condition.Configured(profile)
}

// IsActive evaluates profile for the project in actx.
func (a *CustomActivator) IsActive(ctx context.Context, profile *model.Profile, actx Context) (bool, error) {
	if !a.condition.Configured(profile) {
		return false, nil
	}
	caching := a.condition.CacheResults()
	identity := profile.Identity()
	if caching {
		if file := actx.DescriptorFile(); file != "" {
			if verdict, ok := a.verdicts.Get(modelcache.ProfileKey(identity, file)); ok {
				active, _ := verdict.(bool)
				a.logVerdict(profile, projectName(nil, actx), active, true)
				return active, nil
			}
		}
	}

	descriptor, ok := a.resolver.ResolveModel(ctx, profile, actx)
	if !ok {
		a.logger.Debug("profile inactive, no descriptor",
			"activator", a.Name(), "profile", profile.ID, "project", projectName(nil, actx))
		return false, nil
	}

	active, err := a.condition.Evaluate(ctx, profile, descriptor, actx)
	if err != nil {
		project := projectName(descriptor, actx)
		a.logger.Error("profile activation failed",
			"activator", a.Name(), "profile", profile.ID, "project", project, "error", err)
		a.report(ctx, activity.BuildActivationFailedEvent(activity.ActivationEventInput{
			ProfileID:  identity,
			Activator:  a.Name(),
			Project:    project,
			Descriptor: descriptor.File,
			Err:        err,
		}))
		return false, &ActivationError{Activator: a.Name(), Profile: profile.ID, Project: project, Err: err}
	}
	if caching {
		active, _ = a.verdicts.Put(modelcache.ProfileKey(identity, descriptor.File), active).(bool)
	}
	project := projectName(descriptor, actx)
	a.logVerdict(profile, project, active, caching)
	if active {
		a.report(ctx, activity.BuildProfileActivatedEvent(activity.ActivationEventInput{
			ProfileID:  identity,
			Activator:  a.Name(),
			Project:    project,
			Descriptor: descriptor.File,
		}))
	}
	return active, nil
}

func (a *CustomActivator) logVerdict(profile *model.Profile, project string, active, caching bool) {
	verdict := "INACTIVE"
	if active {
		verdict = "ACTIVE"
	}
	keyvals := []interface{}{"activator", a.Name(), "profile", profile.ID, "project", project, "verdict", verdict}
	if active || caching {
		a.logger.Info("profile activation", keyvals...)
		return
	}
	a.logger.Debug("profile activation", keyvals...)
}

func (a *CustomActivator) report(ctx context.Context, event activity.Event) {
	if a.reporter == nil {
		return
	}
	if err := a.reporter.Emit(ctx, event); err != nil {
		a.logger.Warn("problem report failed", "verb", event.Verb, "error", err)
	}
}

// projectName is groupId:artifactId of the descriptor, else the project
// directory name.
func projectName(descriptor *model.Descriptor, actx Context) string {
	if descriptor != nil {
		if name := descriptor.DisplayName(); name != "" {
			return name
		}
	}
	if actx.ProjectDir == "" {
		return "<unknown>"
	}
	return filepath.Base(actx.ProjectDir)
}
