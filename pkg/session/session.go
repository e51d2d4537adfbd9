// Package session ties option resolution and profile activation to one build.
// A Session owns the property context, the model cache and the activators;
// nothing it holds outlives it except the hints written to the state store.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activation"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/cioption"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/modelcache"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/predicate"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/state"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/vcs"
)

// DefaultHintDomain is the state domain infrastructure hints are kept under.
const DefaultHintDomain = "ci-hints"

// Config describes the inputs of a session.
type Config struct {
	// Environ is the process environment, KEY=value. Entries become env.KEY
	// system properties.
	Environ []string
	// UserProperties are -D style properties and settings file entries.
	UserProperties map[string]string
	// ProjectDir is the root project. Defaults to the working directory.
	ProjectDir string
	// Facts defaults to the CI environment chained ahead of git.
	Facts vcs.Provider
	// StateStore keeps hints across sessions. Optional.
	StateStore state.Store
	HintDomain string
	// Strict turns a rejected project version into an error.
	Strict bool
	// Repositories resolves parents outside the source tree. Optional.
	Repositories model.Resolver
	Builder      model.Builder
	// Hooks receive session events, including activation problems.
	Hooks activity.Hooks
}

// Session is one build session.
type Session struct {
	id       string
	cfg      Config
	props    *opts.Context
	registry *opts.Registry
	cache    *modelcache.Cache
	logger   opts.Logger
	emitter  *activity.Emitter

	// baseline is the context as it was before options were written back.
	baseline *opts.Context

	activatorsOnce sync.Once
	resolver       *activation.ModelResolver
	selector       *activation.Selector
}

type Option func(*Session)

func WithLogger(logger opts.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithRegistry replaces the option catalog.
func WithRegistry(registry *opts.Registry) Option {
	return func(s *Session) {
		s.registry = registry
	}
}

// New validates the catalog and prepares an empty session. Catalog defects
// are reported here, before any option is evaluated.
func New(cfg Config, options ...Option) (*Session, error) {
	s := &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		registry: cioption.NewRegistry(),
		cache:    modelcache.New(),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = opts.LoggerOrNop(s.logger)
	if err := s.registry.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	if s.cfg.ProjectDir == "" {
		s.cfg.ProjectDir = "."
	}
	dir, err := filepath.Abs(s.cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("session: project dir: %w", err)
	}
	s.cfg.ProjectDir = dir
	if s.cfg.Facts == nil {
		s.cfg.Facts = vcs.Default(s.cfg.Environ, dir)
	}
	if s.cfg.HintDomain == "" {
		s.cfg.HintDomain = DefaultHintDomain
	}
	if s.cfg.Builder == nil {
		s.cfg.Builder = model.NewBuilder(model.WithBuilderLogger(s.logger))
	}

	s.props = opts.NewContext(opts.SystemEnvironment(s.cfg.Environ), s.cfg.UserProperties, opts.WithLogger(s.logger))
	s.emitter = activity.NewEmitter(s.cfg.Hooks, activity.Config{Enabled: len(s.cfg.Hooks) > 0, ActorID: s.id})
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Context returns the property context owned by the session.
func (s *Session) Context() *opts.Context { return s.props }

func (s *Session) Cache() *modelcache.Cache { return s.cache }

func (s *Session) ProjectDir() string { return s.cfg.ProjectDir }

// Result is the outcome of Prepare.
type Result struct {
	Facts opts.Facts
	// Properties holds every resolved option, keyed by property name.
	Properties map[string]string
	// Absent lists the options that produced no value.
	Absent []string
	// Hints lists the system properties loaded from the state store.
	Hints []string
	// Persisted lists the hints recorded by this session.
	Persisted []string
	// VersionErr is set when the project version was rejected.
	VersionErr error
}

// Prepare gathers VCS facts, loads hints and runs every option of the catalog
// into the user scope. It is meant to run once, before activation.
func (s *Session) Prepare(ctx context.Context) (*Result, error) {
	result := &Result{}

	facts, err := s.cfg.Facts.Facts(ctx)
	if err != nil {
		s.logger.Warn("vcs facts unavailable", "dir", s.cfg.ProjectDir, "error", err)
	}
	if facts.RefName == "" {
		s.logger.Warn("git ref name unresolved; ref based options stay absent", "dir", s.cfg.ProjectDir)
	}
	s.props.Facts = facts
	result.Facts = facts

	result.Hints = s.loadHints(ctx, facts)
	before := s.props.System.Map()
	s.baseline = opts.NewContext(before, s.props.User.Map(), opts.WithFacts(facts))

	project := &opts.Properties{}
	merged, err := s.registry.Resolve(s.props, s.props.User, project)
	if err != nil {
		return nil, fmt.Errorf("session: resolve options: %w", err)
	}
	result.Properties = merged.Map()
	result.Absent = s.absent(merged)

	result.Persisted = s.persistHints(ctx, facts, before)

	if opts.ParseBool(merged.Get(cioption.CheckProjectVersion.PropertyName())) {
		if verr := s.checkVersion(ctx, facts.RefName); verr != nil {
			result.VersionErr = verr
			if s.cfg.Strict {
				return result, verr
			}
		}
	}

	s.dump(merged)
	if err := s.emitter.Emit(ctx, activity.BuildOptionsResolvedEvent(s.id, merged.Len(), result.Absent)); err != nil {
		s.logger.Warn("session event dropped", "verb", activity.VerbOptionsResolved, "error", err)
	}
	return result, nil
}

// ErrUnknownOption is returned by Explain for properties outside the catalog.
var ErrUnknownOption = errors.New("session: unknown option")

// Explain traces how the option bound to property resolves, against the
// inputs Prepare saw.
func (s *Session) Explain(property string) (opts.Trace, error) {
	option, ok := s.registry.Lookup(opts.DeriveName(property))
	if !ok {
		return opts.Trace{}, fmt.Errorf("%w: %s", ErrUnknownOption, property)
	}
	base := s.baseline
	if base == nil {
		base = opts.NewContext(s.props.System.Map(), s.props.User.Map(), opts.WithFacts(s.props.Facts))
	}
	_, _, trace := opts.ResolveWithTrace(option, base)
	return trace, nil
}

func (s *Session) absent(merged *opts.Properties) []string {
	var out []string
	for _, group := range s.registry.Groups() {
		for _, option := range group.Options {
			if _, ok := merged.Get(option.PropertyName()); !ok {
				out = append(out, option.PropertyName())
			}
		}
	}
	slices.Sort(out)
	return out
}

// hintScopes are the state scopes hints are read from, strongest first.
func (s *Session) hintScopes(facts opts.Facts) []state.Scope {
	return []state.Scope{state.ProjectScope(s.projectID(facts)), state.UserScope()}
}

// projectID identifies the project across checkouts: the remote when known,
// else the project directory.
func (s *Session) projectID(facts opts.Facts) string {
	if remote, ok := cioption.ParseRemote(facts.RemoteURL); ok {
		return strings.Join([]string{remote.Host, remote.Owner, remote.Repo}, "/")
	}
	return s.cfg.ProjectDir
}

func (s *Session) loadHints(ctx context.Context, facts opts.Facts) []string {
	if s.cfg.StateStore == nil {
		return nil
	}
	resolver := state.Resolver{Store: s.cfg.StateStore}
	snapshot, err := resolver.Resolve(ctx, s.cfg.HintDomain, s.hintScopes(facts)...)
	if err != nil {
		s.logger.Warn("hints unavailable", "domain", s.cfg.HintDomain, "error", err)
		return nil
	}
	added := s.props.System.FillAbsent(snapshot)
	if len(added) > 0 {
		s.logger.Debug("hints loaded", "domain", s.cfg.HintDomain, "keys", strings.Join(added, ","))
	}
	return added
}

// persistHints saves the system properties options recorded during
// resolution. Existing hints are kept.
func (s *Session) persistHints(ctx context.Context, facts opts.Facts, before map[string]string) []string {
	if s.cfg.StateStore == nil {
		return nil
	}
	recorded := map[string]string{}
	for key, value := range s.props.System.Map() {
		if _, ok := before[key]; !ok {
			recorded[key] = value
		}
	}
	if len(recorded) == 0 {
		return nil
	}
	var added []string
	ref := state.Ref{Domain: s.cfg.HintDomain, Scope: state.ProjectScope(s.projectID(facts))}
	_, _, err := state.Resolver{Store: s.cfg.StateStore}.Mutate(ctx, ref, state.Meta{}, func(snapshot state.Snapshot) error {
		for key, value := range recorded {
			if _, ok := snapshot[key]; ok {
				continue
			}
			snapshot[key] = value
			added = append(added, key)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("hints not persisted", "domain", s.cfg.HintDomain, "error", err)
		return nil
	}
	slices.Sort(added)
	return added
}

// checkVersion validates the root project version against ref. A missing
// descriptor skips the check.
func (s *Session) checkVersion(ctx context.Context, ref string) error {
	file := filepath.Join(s.cfg.ProjectDir, model.DescriptorFile)
	d, err := s.cfg.Builder.Build(ctx, model.Request{
		File:             file,
		SystemProperties: s.props.System.Map(),
		UserProperties:   s.props.User.Map(),
		Resolver:         s.cfg.Repositories,
		Cache:            s.cache,
	})
	if err != nil {
		s.logger.Debug("version check skipped", "file", file, "error", err)
		return nil
	}
	err = cioption.ValidateVersion(ref, d.Version)
	if err == nil {
		s.logger.Debug("project version accepted", "ref", ref, "version", d.Version)
		return nil
	}
	if errors.Is(err, cioption.ErrMissingRef) {
		s.logger.Debug("version check skipped", "reason", err)
		return nil
	}
	if s.cfg.Strict {
		s.logger.Error("project version rejected", "project", d.DisplayName(), "error", err)
	} else {
		s.logger.Warn("project version rejected", "project", d.DisplayName(), "error", err)
	}
	event := activity.BuildVersionRejectedEvent(d.DisplayName(), ref, d.Version, err, s.cfg.Strict)
	if emitErr := s.emitter.Emit(ctx, event); emitErr != nil {
		s.logger.Warn("session event dropped", "verb", event.Verb, "error", emitErr)
	}
	return err
}

func (s *Session) dump(props *opts.Properties) {
	keys := props.Keys()
	slices.Sort(keys)
	for _, key := range keys {
		value, _ := props.Get(key)
		s.logger.Debug("property", "key", key, "value", opts.MaskProperty(key, value))
	}
}

// Activators returns the custom activators of the session. They share one
// ModelResolver over the session cache.
func (s *Session) Activators() []*activation.CustomActivator {
	return s.activation().Activators()
}

func (s *Session) activation() *activation.Selector {
	s.activatorsOnce.Do(func() {
		s.resolver = activation.NewModelResolver(s.cfg.Builder, s.cache,
			activation.WithLogger(s.logger),
			activation.WithRepositoryResolver(s.cfg.Repositories),
		)
		evaluations := predicate.EvaluationLoggerFunc(func(event predicate.LogEvent) {
			s.logger.Debug("predicate evaluated",
				"engine", event.Engine, "scope", event.Scope, "duration", event.Duration, "error", event.Err)
		})
		options := []activation.ActivatorOption{
			activation.WithActivatorLogger(s.logger),
			activation.WithReporter(s.emitter),
		}
		s.selector = activation.NewSelector(
			activation.NewCustomActivator(activation.NewExpressionCondition(evaluations), s.resolver, options...),
			activation.NewCustomActivator(activation.DockerfileCondition{}, s.resolver, options...),
			activation.NewCustomActivator(activation.PackagingCondition{}, s.resolver, options...),
		)
	})
	return s.selector
}
