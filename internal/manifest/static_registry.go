package manifest

import (
	"context"
	"sync"
)

// StaticRegistry serves manifests from an in-memory map.
// Used for local development and tests — no database required.
type StaticRegistry struct {
	mu        sync.RWMutex
	manifests map[string]*Manifest
}

// NewStaticRegistry creates a registry pre-populated with the given manifests.
func NewStaticRegistry(manifests ...*Manifest) *StaticRegistry {
	r := &StaticRegistry{manifests: make(map[string]*Manifest, len(manifests))}
	for _, m := range manifests {
		r.manifests[m.ActorID] = m
	}
	return r
}

func (r *StaticRegistry) GetManifest(_ context.Context, actorID string) (*Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[actorID]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// Put adds or replaces a manifest.
func (r *StaticRegistry) Put(m *Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[m.ActorID] = m
}
