package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/manifest"
	"github.com/triage-ai/warden/internal/policy"
	"go.uber.org/zap"
)

// Gateway resolves and executes tools for one actor session. Handles are
// resolved lazily on first use and cached for the lifetime of this gateway
// only — never globally, so capabilities cannot bleed between actors.
type Gateway struct {
	manifest *manifest.Manifest
	native   *NativeRegistry
	catalog  Catalog
	checker  *policy.Checker
	trail    *audit.Trail
	logger   *zap.Logger

	mu        sync.Mutex
	handles   map[string]Handle // resolved handle cache, session-scoped
	overrides map[string]Handle // explicitly registered for this session
}

// GatewayConfig configures a session Gateway.
type GatewayConfig struct {
	Manifest *manifest.Manifest
	Native   *NativeRegistry
	Catalog  Catalog // may be nil (no API-tool catalog configured)
	Checker  *policy.Checker
	Trail    *audit.Trail
	Logger   *zap.Logger
}

// NewGateway creates a Gateway bound to one actor's manifest.
func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{
		manifest:  cfg.Manifest,
		native:    cfg.Native,
		catalog:   cfg.Catalog,
		checker:   cfg.Checker,
		trail:     cfg.Trail,
		logger:    cfg.Logger,
		handles:   make(map[string]Handle),
		overrides: make(map[string]Handle),
	}
}

// RegisterOverride binds an implementation for this session only.
// Overrides still go through the allow-list check on Get.
func (g *Gateway) RegisterOverride(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.overrides[h.Name()] = h
}

// Get resolves a tool handle.
//
// The allow-list check always runs first and can never be bypassed by the
// existence of an implementation. Resolution order after it: session
// override, native implementation, API-tool catalog spec, ErrNotFound.
func (g *Gateway) Get(ctx context.Context, toolName string) (Handle, error) {
	if !g.manifest.AllowsTool(toolName) {
		return nil, fmt.Errorf("%w: %q is not in the allowed set of actor %s",
			ErrNotAllowed, toolName, g.manifest.ActorID)
	}

	g.mu.Lock()
	if h, ok := g.handles[toolName]; ok {
		g.mu.Unlock()
		return h, nil
	}
	override, hasOverride := g.overrides[toolName]
	g.mu.Unlock()

	if hasOverride {
		g.cacheHandle(override)
		return override, nil
	}

	if h, ok := g.native.Lookup(toolName); ok {
		g.cacheHandle(h)
		return h, nil
	}

	if g.catalog != nil {
		spec, err := g.catalog.GetSpec(ctx, toolName)
		if err != nil {
			return nil, fmt.Errorf("Get: %w", err)
		}
		if spec != nil {
			h := newAPIExecutor(spec, g.logger)
			g.cacheHandle(h)
			return h, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, toolName)
}

func (g *Gateway) cacheHandle(h Handle) {
	g.mu.Lock()
	g.handles[h.Name()] = h
	g.mu.Unlock()
}

// Run resolves and invokes a tool in one step. Every run is audited,
// including runs that fail the allow-list or policy check.
func (g *Gateway) Run(ctx context.Context, toolName string, args map[string]any) (map[string]any, error) {
	h, err := g.Get(ctx, toolName)
	if err != nil {
		g.auditRun(toolName, outcomeForError(err), "")
		return nil, err
	}

	if g.checker != nil && len(g.manifest.PolicyIDs) > 0 {
		input := map[string]any{
			"actor_id":  g.manifest.ActorID,
			"risk_tier": g.manifest.RiskTier,
			"tool":      toolName,
			"args":      args,
		}
		if _, err := g.checker.Check(ctx, g.manifest.PolicyIDs, input); err != nil {
			g.auditRun(toolName, "policy_denied", "")
			return nil, err
		}
	}

	result, err := h.Invoke(ctx, args)
	if err != nil {
		g.auditRun(toolName, "failed", err.Error())
		return nil, fmt.Errorf("Run: %s: %w", toolName, err)
	}

	g.auditRun(toolName, "completed", summarize(result))
	return result, nil
}

func (g *Gateway) auditRun(toolName, outcome, summary string) {
	if g.trail == nil {
		return
	}
	payload := map[string]any{
		"tool":    toolName,
		"outcome": outcome,
	}
	if summary != "" {
		payload["summary"] = audit.TruncateSummary(summary, audit.SummaryLength)
	}
	g.trail.Log(g.manifest.ActorID, audit.EventToolCall, payload)
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, ErrNotAllowed):
		return "not_allowed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "failed"
	}
}

func summarize(result map[string]any) string {
	if len(result) == 0 {
		return ""
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}
