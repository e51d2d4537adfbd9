package state

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps snapshots in memory. Every save assigns a new snapshot ID
// that doubles as the ETag.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]record
}

type record struct {
	Properties Snapshot `yaml:"properties"`
	Meta       Meta     `yaml:"meta"`
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]record{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return maps.Clone(rec.Properties), cloneMeta(rec.Meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	saved := stamp(meta)
	s.mu.Lock()
	s.records[key] = record{Properties: maps.Clone(snapshot), Meta: saved}
	s.mu.Unlock()
	return cloneMeta(saved), nil
}

func stamp(meta Meta) Meta {
	out := cloneMeta(meta)
	out.SnapshotID = uuid.NewString()
	out.ETag = out.SnapshotID
	out.UpdatedAt = time.Now().UTC()
	return out
}
