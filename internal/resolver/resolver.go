// Package resolver builds authorized execution contexts for actors.
//
// Resolution reads the Definition Registry and the Kill-Switch Registry and
// nothing else: it is idempotent and side-effect-free on the governed
// system. An explicit kill-switch is always authoritative; an unreachable
// kill-switch registry follows the configured fail mode (open by default).
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/killswitch"
	"github.com/triage-ai/warden/internal/llm"
	"github.com/triage-ai/warden/internal/manifest"
	"github.com/triage-ai/warden/internal/policy"
	"github.com/triage-ai/warden/internal/tools"
	"go.uber.org/zap"
)

var (
	// ErrActorDisabled is returned when the actor's kill-switch is set.
	ErrActorDisabled = errors.New("actor disabled by kill-switch")

	// ErrBackendDisabled is returned when the manifest's declared capability
	// backend is kill-switched.
	ErrBackendDisabled = errors.New("capability backend disabled by kill-switch")

	// ErrKillSwitchUnavailable is returned under fail-closed mode when the
	// kill-switch registry cannot be reached.
	ErrKillSwitchUnavailable = errors.New("kill-switch registry unavailable")
)

// AuthorizedContext is one actor's execution context: the resolved manifest,
// a session-scoped tool gateway, and the optional LLM capability. Created at
// session start, destroyed at session end, never shared across actors.
type AuthorizedContext struct {
	Manifest *manifest.Manifest
	Tools    *tools.Gateway
	LLM      llm.Capability
}

// CapabilityResolver builds AuthorizedContexts. Safe for concurrent use:
// every Resolve call produces a fresh, isolated context without any
// process-wide lock.
type CapabilityResolver struct {
	manifests  manifest.Registry
	switches   killswitch.Registry
	native     *tools.NativeRegistry
	catalog    tools.Catalog
	checker    *policy.Checker
	trail      *audit.Trail
	failClosed bool
	logger     *zap.Logger
}

// Config configures the CapabilityResolver.
type Config struct {
	Manifests  manifest.Registry
	Switches   killswitch.Registry
	Native     *tools.NativeRegistry
	Catalog    tools.Catalog // may be nil
	Checker    *policy.Checker
	Trail      *audit.Trail
	FailClosed bool // kill-switch registry unavailability blocks resolution
	Logger     *zap.Logger
}

// New creates a CapabilityResolver.
func New(cfg Config) *CapabilityResolver {
	native := cfg.Native
	if native == nil {
		native = tools.NewNativeRegistry()
	}
	return &CapabilityResolver{
		manifests:  cfg.Manifests,
		switches:   cfg.Switches,
		native:     native,
		catalog:    cfg.Catalog,
		checker:    cfg.Checker,
		trail:      cfg.Trail,
		failClosed: cfg.FailClosed,
		logger:     cfg.Logger,
	}
}

// Resolve builds the authorized context for an actor.
//
// Returns manifest.ErrNotFound when the actor has no manifest and
// ErrActorDisabled / ErrBackendDisabled when a kill-switch is set. A
// kill-switch registry failure proceeds under fail-open (logged), or fails
// with ErrKillSwitchUnavailable under fail-closed.
func (r *CapabilityResolver) Resolve(ctx context.Context, actorID string) (*AuthorizedContext, error) {
	m, err := r.manifests.GetManifest(ctx, actorID)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	if err := r.checkSwitch(ctx, killswitch.SubjectActor, actorID, ErrActorDisabled); err != nil {
		return nil, err
	}
	if m.LLMBackend != "" {
		if err := r.checkSwitch(ctx, killswitch.SubjectBackend, m.LLMBackend, ErrBackendDisabled); err != nil {
			return nil, err
		}
	}

	gateway := tools.NewGateway(tools.GatewayConfig{
		Manifest: m,
		Native:   r.native,
		Catalog:  r.catalog,
		Checker:  r.checker,
		Trail:    r.trail,
		Logger:   r.logger,
	})

	return &AuthorizedContext{
		Manifest: m,
		Tools:    gateway,
		LLM:      llm.Probe(m.LLMBackend),
	}, nil
}

func (r *CapabilityResolver) checkSwitch(ctx context.Context, subjectKind, subjectID string, disabledErr error) error {
	disabled, err := r.switches.Disabled(ctx, subjectKind, subjectID)
	if err != nil {
		if r.failClosed {
			return fmt.Errorf("%w: %v", ErrKillSwitchUnavailable, err)
		}
		// Fail-open for availability: an unreachable registry does not block
		// resolution. Explicit disables are still authoritative when the
		// registry answers.
		r.logger.Warn("kill-switch registry unreachable, proceeding fail-open",
			zap.String("subject_kind", subjectKind),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		return nil
	}
	if disabled {
		return fmt.Errorf("%w: %s", disabledErr, subjectID)
	}
	return nil
}
