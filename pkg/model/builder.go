package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/modelcache"
)

var (
	ErrParentNotFound = errors.New("model: parent descriptor not found")
	ErrParentCycle    = errors.New("model: parent cycle")
)

// Request describes one descriptor build.
type Request struct {
	// File is the descriptor to build.
	File             string
	SystemProperties map[string]string
	UserProperties   map[string]string
	// Resolver fetches parents that are not reachable via relativePath.
	// Optional.
	Resolver Resolver
	// Cache is shared with other builds of the session. Optional.
	Cache *modelcache.Cache
}

// Builder produces effective descriptors.
type Builder interface {
	Build(ctx context.Context, req Request) (*Descriptor, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, req Request) (*Descriptor, error)

func (f BuilderFunc) Build(ctx context.Context, req Request) (*Descriptor, error) {
	return f(ctx, req)
}

// DefaultBuilder reads the descriptor and its parents, applies inheritance and
// interpolates the result.
type DefaultBuilder struct {
	logger opts.Logger
}

type BuilderOption func(*DefaultBuilder)

func WithBuilderLogger(logger opts.Logger) BuilderOption {
	return func(b *DefaultBuilder) {
		b.logger = logger
	}
}

func NewBuilder(options ...BuilderOption) *DefaultBuilder {
	b := &DefaultBuilder{}
	for _, option := range options {
		option(b)
	}
	b.logger = opts.LoggerOrNop(b.logger)
	return b
}

func (b *DefaultBuilder) Build(ctx context.Context, req Request) (*Descriptor, error) {
	cache := req.Cache
	if cache == nil {
		cache = modelcache.New()
	}
	file, err := filepath.Abs(req.File)
	if err != nil {
		return nil, err
	}
	raw, err := b.raw(cache, file)
	if err != nil {
		return nil, err
	}

	lineage := []*Descriptor{raw}
	seen := map[string]bool{raw.File: true}
	for current := raw; current.Parent != nil; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parent, err := b.parent(ctx, req, cache, current, lineage)
		if err != nil {
			return nil, err
		}
		if seen[parent.File] {
			return nil, fmt.Errorf("%w: %s", ErrParentCycle, parent.File)
		}
		seen[parent.File] = true
		lineage = append(lineage, parent)
		current = parent
	}

	effective := inherit(lineage)
	interpolator{d: effective, system: req.SystemProperties, user: req.UserProperties}.apply()

	key := modelcache.ArtifactKey(effective.GroupID, effective.ArtifactID, effective.Version, "effective")
	if existing, ok := cache.Put(key, effective).(*Descriptor); ok && existing.File == effective.File {
		effective = existing
	}
	b.logger.Debug("descriptor built", "file", effective.File, "coordinates", effective.Coordinates.String(), "parents", len(lineage)-1)
	return effective, nil
}

func (b *DefaultBuilder) raw(cache *modelcache.Cache, file string) (*Descriptor, error) {
	key := modelcache.FileKey(file, "raw")
	if cached, ok := cache.Get(key); ok {
		if d, ok := cached.(*Descriptor); ok {
			return d, nil
		}
		return nil, fmt.Errorf("model: %s: %w", file, os.ErrNotExist)
	}
	d, err := ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cache.Put(key, modelcache.NotFound)
		}
		return nil, err
	}
	if stored, ok := cache.Put(key, d).(*Descriptor); ok {
		d = stored
	}
	return d, nil
}

// parent locates the parent of child: relativePath first, when it points at a
// descriptor with matching coordinates, then the resolver.
func (b *DefaultBuilder) parent(ctx context.Context, req Request, cache *modelcache.Cache, child *Descriptor, lineage []*Descriptor) (*Descriptor, error) {
	ref := child.Parent
	if ref.RelativePath != "" {
		candidate := filepath.Join(child.Basedir(), filepath.FromSlash(ref.RelativePath))
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			candidate = filepath.Join(candidate, DescriptorFile)
		}
		if d, err := b.raw(cache, candidate); err == nil {
			if parentMatches(ref.Coordinates, d) {
				return d, nil
			}
			b.logger.Debug("relative parent does not match", "file", candidate, "expected", ref.Coordinates.String())
		}
	}

	key := modelcache.ArtifactKey(ref.GroupID, ref.ArtifactID, ref.Version, "resolved")
	if cached, ok := cache.Get(key); ok {
		if file, ok := cached.(string); ok {
			return b.raw(cache, file)
		}
		return nil, fmt.Errorf("%w: %s", ErrParentNotFound, ref.Coordinates)
	}
	if req.Resolver == nil || !ref.Complete() {
		cache.Put(key, modelcache.NotFound)
		return nil, fmt.Errorf("%w: %s", ErrParentNotFound, ref.Coordinates)
	}
	file, err := req.Resolver.Resolve(ctx, ref.Coordinates, repositories(lineage))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cache.Put(key, modelcache.NotFound)
		return nil, fmt.Errorf("%w: %s: %w", ErrParentNotFound, ref.Coordinates, err)
	}
	cache.Put(key, file)
	return b.raw(cache, file)
}

// parentMatches compares declared parent coordinates with a raw descriptor
// whose own groupId and version may be inherited.
func parentMatches(want Coordinates, d *Descriptor) bool {
	got := d.Coordinates
	if d.Parent != nil {
		if got.GroupID == "" {
			got.GroupID = d.Parent.GroupID
		}
		if got.Version == "" {
			got.Version = d.Parent.Version
		}
	}
	return got.GroupID == want.GroupID && got.ArtifactID == want.ArtifactID && got.Version == want.Version
}

func repositories(lineage []*Descriptor) []Repository {
	var out []Repository
	seen := map[string]bool{}
	for _, d := range lineage {
		for _, repo := range d.Repositories {
			if seen[repo.ID] {
				continue
			}
			seen[repo.ID] = true
			out = append(out, repo)
		}
	}
	return out
}

// inherit folds lineage (child first) into a fresh effective descriptor.
func inherit(lineage []*Descriptor) *Descriptor {
	child := lineage[0].clone()
	props := &opts.Properties{}
	for i := len(lineage) - 1; i >= 0; i-- {
		props.Merge(lineage[i].Properties.Map())
	}
	child.Properties = props
	child.Repositories = repositories(lineage)
	for _, ancestor := range lineage[1:] {
		if child.GroupID == "" {
			child.GroupID = ancestor.GroupID
		}
		if child.Version == "" {
			child.Version = ancestor.Version
		}
	}
	if child.Parent != nil {
		if child.GroupID == "" {
			child.GroupID = child.Parent.GroupID
		}
		if child.Version == "" {
			child.Version = child.Parent.Version
		}
	}
	if child.Packaging == "" {
		child.Packaging = DefaultPackaging
	}
	return child
}
