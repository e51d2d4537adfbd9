// Package activation decides which descriptor profiles are active. Custom
// activators pair a Condition with a ModelResolver that builds the effective
// descriptor of the project under evaluation; both memoise per session.
package activation

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/modelcache"
)

// Context is the activation context of one project: its directory and the
// session's system and user properties. It is read-only during activation.
type Context struct {
	ProjectDir       string
	SystemProperties map[string]string
	UserProperties   map[string]string
}

// DescriptorFile is the absolute path of the candidate descriptor of the
// project, or "".
func (c Context) DescriptorFile() string {
	if c.ProjectDir == "" {
		return ""
	}
	file := filepath.Join(c.ProjectDir, model.DescriptorFile)
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return file
}

// resolution is the memo entry of one (profile, descriptor file) pair. done
// is closed once descriptor is final; until then the entry is the in-flight
// placeholder.
type resolution struct {
	done       chan struct{}
	descriptor *model.Descriptor
}

func settled(descriptor *model.Descriptor) *resolution {
	r := &resolution{done: make(chan struct{}), descriptor: descriptor}
	close(r.done)
	return r
}

func (r *resolution) result() (*model.Descriptor, bool) {
	select {
	case <-r.done:
		return r.descriptor, r.descriptor != nil
	default:
		return nil, false
	}
}

// ModelResolver builds effective descriptors for profile activation. Each
// (profile, descriptor file) pair is built at most once per session; failures
// are remembered as absent and never retried.
type ModelResolver struct {
	builder model.Builder
	cache   *modelcache.Cache
	repos   model.Resolver
	logger  opts.Logger
}

type ResolverOption func(*ModelResolver)

func WithLogger(logger opts.Logger) ResolverOption {
	return func(r *ModelResolver) {
		r.logger = logger
	}
}

// WithRepositoryResolver sets the resolver handed to the builder for parents
// outside the source tree.
func WithRepositoryResolver(resolver model.Resolver) ResolverOption {
	return func(r *ModelResolver) {
		r.repos = resolver
	}
}

// NewModelResolver returns a resolver over builder. cache holds the memo
// entries and is handed to every build so descriptor reads are shared.
func NewModelResolver(builder model.Builder, cache *modelcache.Cache, options ...ResolverOption) *ModelResolver {
	if cache == nil {
		cache = modelcache.New()
	}
	r := &ModelResolver{builder: builder, cache: cache}
	for _, option := range options {
		option(r)
	}
	r.logger = opts.LoggerOrNop(r.logger)
	return r
}

// Cache returns the shared cache.
func (r *ModelResolver) Cache() *modelcache.Cache {
	return r.cache
}

// ResolveModel returns the effective descriptor of the project in actx as seen
// by profile.
//
// The pair is claimed before the build starts. Any caller that finds the
// claim still in flight gets absent without waiting, whether it re-entered
// from inside the build or runs on another goroutine, so a builder that does
// not pass ctx along cannot deadlock. A build stopped by ctx cancellation
// releases its claim and is retried by the next caller.
func (r *ModelResolver) ResolveModel(ctx context.Context, profile *model.Profile, actx Context) (*model.Descriptor, bool) {
	identity := profile.Identity()
	if profile.Inline() {
		r.cache.Put(modelcache.ProfileKey(identity, ""), settled(nil))
		return nil, false
	}
	file := actx.DescriptorFile()
	if !exists(actx.ProjectDir) || !exists(file) {
		r.cache.Put(modelcache.ProfileKey(identity, file), settled(nil))
		r.logger.Debug("no descriptor for profile", "profile", identity, "dir", actx.ProjectDir)
		return nil, false
	}

	key := modelcache.ProfileKey(identity, file)
	claim := &resolution{done: make(chan struct{})}
	entry, ok := r.cache.Put(key, claim).(*resolution)
	if !ok {
		return nil, false
	}
	if entry != claim {
		descriptor, found := entry.result()
		if !found {
			r.logger.Debug("descriptor resolution absent or in flight", "key", key.String())
		}
		return descriptor, found
	}

	defer close(claim.done)
	descriptor, err := r.builder.Build(ctx, model.Request{
		File:             file,
		SystemProperties: actx.SystemProperties,
		UserProperties:   actx.UserProperties,
		Resolver:         r.repos,
		Cache:            r.cache,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.cache.Release(key, claim)
			r.logger.Debug("descriptor build interrupted", "profile", identity, "file", file, "error", err)
			return nil, false
		}
		r.logger.Warn("descriptor build failed", "profile", identity, "file", file, "error", err)
		return nil, false
	}
	claim.descriptor = descriptor
	return descriptor, descriptor != nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
