package manifest

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no manifest exists for an actor id.
var ErrNotFound = errors.New("manifest not found")

// Manifest is a versioned declaration of what an actor may do.
// Immutable once loaded for a session; owned by the AuthorizedContext
// that loaded it.
type Manifest struct {
	ActorID      string
	Version      int
	RiskTier     string // "read", "write", "destructive"
	AllowedTools []string
	PolicyIDs    []string
	LLMBackend   string // "" when the actor has no language-model backend
}

// AllowsTool reports whether toolName is in the manifest's allowed set.
// Order of AllowedTools is irrelevant; membership is what matters.
func (m *Manifest) AllowsTool(toolName string) bool {
	for _, t := range m.AllowedTools {
		if t == toolName {
			return true
		}
	}
	return false
}

// Registry provides capability manifests by actor id.
type Registry interface {
	// GetManifest returns the manifest for an actor.
	// Returns ErrNotFound if the actor has no manifest.
	GetManifest(ctx context.Context, actorID string) (*Manifest, error)
}
