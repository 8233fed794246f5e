// Package invoke is the trust boundary mediating actor-to-actor calls.
//
// The defining invariant: a caller's permissions, tools, or context are
// never passed to the target. The target runs under a fresh context built
// from its own manifest alone. Violating this is a security bug.
package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/resolver"
	"go.uber.org/zap"
)

// Invocation states. Denied, completed, and failed are terminal.
const (
	StatusRequested = "requested"
	StatusDenied    = "denied"
	StatusAllowed   = "allowed"
	StatusExecuting = "executing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Request is one actor-to-actor invocation request.
type Request struct {
	CallerActorID    string         `json:"caller_actor_id"`
	TargetActorID    string         `json:"target_actor_id"`
	Action           string         `json:"action"`
	TargetType       string         `json:"target_type,omitempty"`
	TargetResourceID string         `json:"target_resource_id,omitempty"`
	Params           map[string]any `json:"params,omitempty"`
}

// Result is always well-formed: either the action's payload on completion,
// or error/reason fields on denial and failure. Never an unhandled panic or
// raw target error crossing the boundary.
type Result struct {
	Status        string         `json:"status"`
	Payload       map[string]any `json:"payload,omitempty"`
	Error         string         `json:"error,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	CallerActorID string         `json:"caller_actor_id"`
	TargetActorID string         `json:"target_actor_id"`
}

// Gateway mediates invocations between actors.
type Gateway struct {
	allow    *AllowList
	resolver *resolver.CapabilityResolver
	actors   *ActorRegistry
	trail    *audit.Trail
	logger   *zap.Logger
}

// GatewayConfig configures the Gateway.
type GatewayConfig struct {
	Allow    *AllowList
	Resolver *resolver.CapabilityResolver
	Actors   *ActorRegistry
	Trail    *audit.Trail
	Logger   *zap.Logger
}

// NewGateway creates an invocation Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{
		allow:    cfg.Allow,
		resolver: cfg.Resolver,
		actors:   cfg.Actors,
		trail:    cfg.Trail,
		logger:   cfg.Logger,
	}
}

// IsAllowed reports whether callerID may invoke targetID. Local check,
// default deny.
func (g *Gateway) IsAllowed(callerID, targetID string) bool {
	return g.allow.IsAllowed(callerID, targetID)
}

// Invoke runs one invocation through the full state machine. Denied and
// failed invocations are terminal for this call; retries are the caller's
// decision, never the gateway's.
func (g *Gateway) Invoke(ctx context.Context, req Request) Result {
	// The request is audited before the authorization decision so the trail
	// captures attempted access, not only granted access.
	g.audit(req.TargetActorID, audit.EventInvocationRequest, map[string]any{
		"caller_actor_id":    req.CallerActorID,
		"action":             req.Action,
		"target_type":        req.TargetType,
		"target_resource_id": req.TargetResourceID,
	})

	if !g.allow.IsAllowed(req.CallerActorID, req.TargetActorID) {
		reason := fmt.Sprintf("caller %s is not allowed to invoke %s", req.CallerActorID, req.TargetActorID)
		g.audit(req.TargetActorID, audit.EventInvocationDenied, map[string]any{
			"caller_actor_id": req.CallerActorID,
			"action":          req.Action,
			"reason":          reason,
		})
		return Result{
			Status:        StatusDenied,
			Error:         "invocation_denied",
			Reason:        reason,
			CallerActorID: req.CallerActorID,
			TargetActorID: req.TargetActorID,
		}
	}

	g.audit(req.TargetActorID, audit.EventInvocationAllowed, map[string]any{
		"caller_actor_id": req.CallerActorID,
		"action":          req.Action,
	})

	// Fresh, isolated context from the target's own manifest only. Nothing
	// of the caller crosses this line except the invoked_by attribution.
	targetCtx, err := g.resolver.Resolve(ctx, req.TargetActorID)
	if err != nil {
		return g.fail(req, "target context could not be constructed", err)
	}

	dispatchable := g.actors.New(req.TargetActorID, targetCtx)
	if dispatchable == nil {
		return g.fail(req, "target actor is not dispatchable", nil)
	}

	payload, err := g.dispatch(ctx, dispatchable, ActionRequest{
		Action:           req.Action,
		TargetType:       req.TargetType,
		TargetResourceID: req.TargetResourceID,
		Params:           req.Params,
		InvokedBy:        req.CallerActorID,
	})
	if err != nil {
		return g.fail(req, "target action failed", err)
	}

	g.audit(req.TargetActorID, audit.EventInvocationCompleted, map[string]any{
		"caller_actor_id": req.CallerActorID,
		"action":          req.Action,
		"result_summary":  audit.TruncateSummary(summarizePayload(payload), audit.SummaryLength),
	})

	return Result{
		Status:        StatusCompleted,
		Payload:       payload,
		CallerActorID: req.CallerActorID,
		TargetActorID: req.TargetActorID,
	}
}

// dispatch isolates the target call so a panicking actor becomes a
// structured failure instead of crossing the boundary.
func (g *Gateway) dispatch(ctx context.Context, d Dispatchable, req ActionRequest) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor panic: %v", r)
		}
	}()
	return d.ExecuteAction(ctx, req)
}

// fail converts an internal failure into the terminal failed result. Raw
// error detail is logged, never returned to the caller unredacted.
func (g *Gateway) fail(req Request, reason string, cause error) Result {
	if cause != nil {
		g.logger.Warn("invocation failed",
			zap.String("caller_actor_id", req.CallerActorID),
			zap.String("target_actor_id", req.TargetActorID),
			zap.String("action", req.Action),
			zap.Error(cause),
		)
	}
	g.audit(req.TargetActorID, audit.EventInvocationFailed, map[string]any{
		"caller_actor_id": req.CallerActorID,
		"action":          req.Action,
		"reason":          reason,
	})
	return Result{
		Status:        StatusFailed,
		Error:         "invocation_failed",
		Reason:        reason,
		CallerActorID: req.CallerActorID,
		TargetActorID: req.TargetActorID,
	}
}

func (g *Gateway) audit(actorID, eventType string, payload map[string]any) {
	if g.trail != nil {
		g.trail.Log(actorID, eventType, payload)
	}
}

func summarizePayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(raw)
}
