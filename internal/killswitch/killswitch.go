// Package killswitch reads the out-of-band disable flags that override an
// actor's manifest. A set switch is always authoritative; an unreachable
// registry is reported as ErrUnavailable so the resolver can apply its
// configured fail mode.
package killswitch

import (
	"context"
	"errors"
)

// Subject kinds a switch can apply to.
const (
	SubjectActor   = "actor"
	SubjectBackend = "backend"
)

// ErrUnavailable indicates the kill-switch registry could not be reached.
var ErrUnavailable = errors.New("kill-switch registry unavailable")

// Registry reports whether a subject is force-disabled.
type Registry interface {
	// Disabled returns true when an explicit disable flag is set for the
	// subject. Absence of a flag means enabled.
	Disabled(ctx context.Context, subjectKind, subjectID string) (bool, error)
}
