package api

import (
	"errors"
	"net/http"

	"github.com/triage-ai/warden/internal/invoke"
	"github.com/triage-ai/warden/internal/manifest"
	"github.com/triage-ai/warden/internal/policy"
	"github.com/triage-ai/warden/internal/resolver"
	"github.com/triage-ai/warden/internal/tools"
	"go.uber.org/zap"
)

// handleResolveActor builds a fresh authorized context for an actor and
// returns its capability summary. The context itself stays server-side;
// callers get the shape of what was granted, never the live gateway.
func (d *Dependencies) handleResolveActor(w http.ResponseWriter, r *http.Request) {
	actorID := r.PathValue("actor_id")

	authCtx, err := d.Resolver.Resolve(r.Context(), actorID)
	if err != nil {
		d.writeResolveError(w, actorID, err)
		return
	}

	resp := ResolveResp{
		ActorID:      authCtx.Manifest.ActorID,
		Version:      authCtx.Manifest.Version,
		RiskTier:     authCtx.Manifest.RiskTier,
		AllowedTools: authCtx.Manifest.AllowedTools,
		PolicyIDs:    authCtx.Manifest.PolicyIDs,
	}
	if authCtx.LLM.Present() {
		resp.LLMCapability = "present"
		resp.LLMBackend = authCtx.Manifest.LLMBackend
	} else {
		resp.LLMCapability = "absent"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRunTool resolves the actor and runs one tool through its
// session-scoped gateway.
func (d *Dependencies) handleRunTool(w http.ResponseWriter, r *http.Request) {
	actorID := r.PathValue("actor_id")
	toolName := r.PathValue("tool_name")

	var req RunToolReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	authCtx, err := d.Resolver.Resolve(r.Context(), actorID)
	if err != nil {
		d.writeResolveError(w, actorID, err)
		return
	}

	result, err := authCtx.Tools.Run(r.Context(), toolName, req.Args)
	if err != nil {
		switch {
		case errors.Is(err, tools.ErrNotAllowed):
			writeJSON(w, http.StatusForbidden, ErrorResp{Detail: "Tool not in actor's allowed set."})
		case errors.Is(err, tools.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found."})
		case errors.Is(err, policy.ErrPolicyDenied):
			writeJSON(w, http.StatusForbidden, ErrorResp{Detail: err.Error()})
		case errors.Is(err, policy.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Policy evaluator unavailable."})
		default:
			d.Logger.Error("tool run failed",
				zap.String("actor_id", actorID),
				zap.String("tool", toolName),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Tool run failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, RunToolResp{
		ActorID: actorID,
		Tool:    toolName,
		Result:  result,
	})
}

// handleInvoke mediates one actor-to-actor invocation. Denied and failed
// invocations are well-formed results, not transport errors; only a
// rejected request shape is an HTTP-level error.
func (d *Dependencies) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invoke.Request
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.CallerActorID == "" || req.TargetActorID == "" || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "caller_actor_id, target_actor_id, and action are required"})
		return
	}

	if svc := serviceFromContext(r.Context()); svc != nil {
		d.Logger.Debug("invocation submitted",
			zap.String("service", svc.Name),
			zap.String("caller_actor_id", req.CallerActorID),
			zap.String("target_actor_id", req.TargetActorID),
		)
	}

	result := d.Invoker.Invoke(r.Context(), req)

	status := http.StatusOK
	if result.Status == invoke.StatusDenied {
		status = http.StatusForbidden
	}
	writeJSON(w, status, result)
}

// writeResolveError maps resolution failures onto HTTP statuses.
func (d *Dependencies) writeResolveError(w http.ResponseWriter, actorID string, err error) {
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Actor manifest not found."})
	case errors.Is(err, resolver.ErrActorDisabled):
		writeJSON(w, http.StatusForbidden, ErrorResp{Detail: "Actor is disabled by kill-switch."})
	case errors.Is(err, resolver.ErrBackendDisabled):
		writeJSON(w, http.StatusForbidden, ErrorResp{Detail: "Actor's capability backend is disabled by kill-switch."})
	case errors.Is(err, resolver.ErrKillSwitchUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Kill-switch registry unavailable."})
	default:
		d.Logger.Error("resolve failed", zap.String("actor_id", actorID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to resolve actor"})
	}
}
