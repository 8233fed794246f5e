package killswitch

import (
	"context"
	"sync"
)

// StaticRegistry holds kill-switch flags in memory.
// Used for local development and tests.
type StaticRegistry struct {
	mu       sync.RWMutex
	disabled map[string]bool // key: kind + ":" + id
}

// NewStaticRegistry creates an empty StaticRegistry (everything enabled).
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{disabled: make(map[string]bool)}
}

func (r *StaticRegistry) Disabled(_ context.Context, subjectKind, subjectID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[subjectKind+":"+subjectID], nil
}

// Set flips the disable flag for a subject.
func (r *StaticRegistry) Set(subjectKind, subjectID string, off bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[subjectKind+":"+subjectID] = off
}
