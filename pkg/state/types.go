package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/ci-and-cd/topinfra-maven-sub001/layering"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Scope names.
const (
	ScopeSystem  = "system"
	ScopeUser    = "user"
	ScopeProject = "project"
)

// Scope selects where a snapshot applies. Project scopes need an ID, usually
// the remote URL or the absolute project root.
type Scope struct {
	Name string
	ID   string
}

func SystemScope() Scope { return Scope{Name: ScopeSystem} }

func UserScope() Scope { return Scope{Name: ScopeUser} }

func ProjectScope(id string) Scope { return Scope{Name: ScopeProject, ID: id} }

// Ref identifies one persisted snapshot.
type Ref struct {
	Domain string
	Scope  Scope
}

// Snapshot is a flat property map.
type Snapshot map[string]string

// Meta is storage-owned metadata used for audit and optimistic concurrency.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Store loads and saves one snapshot per Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error)
}

func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	switch r.Scope.Name {
	case ScopeSystem, ScopeUser:
		return r.Scope.Name + "/" + r.Domain, nil
	case ScopeProject:
		if r.Scope.ID == "" {
			return "", fmt.Errorf("state: missing id for scope %q", r.Scope.Name)
		}
		return ScopeProject + "/" + r.Scope.ID + "/" + r.Domain, nil
	default:
		return "", fmt.Errorf("state: unsupported scope name %q", r.Scope.Name)
	}
}

// Resolver loads snapshots for several scopes and merges them.
type Resolver struct {
	Store Store
}

// Resolve merges the snapshots of scopes, the first scope winning on key
// collision. Missing snapshots are skipped.
func (r Resolver) Resolve(ctx context.Context, domain string, scopes ...Scope) (Snapshot, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	layers := make([]map[string]string, 0, len(scopes))
	for _, scope := range scopes {
		snapshot, _, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if ok {
			layers = append(layers, snapshot)
		}
	}
	return Snapshot(layering.MergeLayers(layers...)), nil
}

// Mutator edits a snapshot in place.
type Mutator func(Snapshot) error

// Mutate loads one snapshot, applies fn and saves the result. A non-empty
// meta.ETag must match the stored one.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (Snapshot, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}
	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok || snapshot == nil {
		snapshot = Snapshot{}
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}
	if err := fn(snapshot); err != nil {
		return nil, loadedMeta, err
	}
	saved, err := r.Store.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	return snapshot, saved, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra != nil {
		out.Extra = maps.Clone(meta.Extra)
	}
	return out
}
