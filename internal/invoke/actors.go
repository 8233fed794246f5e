package invoke

import (
	"context"
	"sync"

	"github.com/triage-ai/warden/internal/resolver"
)

// ActionRequest is what the gateway dispatches to a target actor.
// InvokedBy carries the caller's id for downstream audit traceability only;
// it grants nothing.
type ActionRequest struct {
	Action           string
	TargetType       string
	TargetResourceID string
	Params           map[string]any
	InvokedBy        string
}

// Dispatchable is the single action-handling interface every invocable
// actor exposes.
type Dispatchable interface {
	ExecuteAction(ctx context.Context, req ActionRequest) (map[string]any, error)
}

// Factory builds a target actor's dispatchable from its own authorized
// context. The context is freshly resolved per invocation — factories must
// not retain state across calls.
type Factory func(authCtx *resolver.AuthorizedContext) Dispatchable

// ActorRegistry maps actor ids to constructor functions, populated at
// startup. Actors without an explicit factory get the fallback (the tool
// actor) when one is set.
type ActorRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory
}

// NewActorRegistry creates a registry with the given fallback factory.
// A nil fallback means unregistered actors are not dispatchable.
func NewActorRegistry(fallback Factory) *ActorRegistry {
	return &ActorRegistry{
		factories: make(map[string]Factory),
		fallback:  fallback,
	}
}

// Register binds a factory to an actor id. Later registrations replace
// earlier ones.
func (r *ActorRegistry) Register(actorID string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[actorID] = factory
}

// New constructs the dispatchable for an actor, or nil when the actor has
// neither a registered factory nor a fallback.
func (r *ActorRegistry) New(actorID string, authCtx *resolver.AuthorizedContext) Dispatchable {
	r.mu.RLock()
	factory, ok := r.factories[actorID]
	fallback := r.fallback
	r.mu.RUnlock()

	if ok {
		return factory(authCtx)
	}
	if fallback != nil {
		return fallback(authCtx)
	}
	return nil
}

// ToolActor is the default dispatchable: it treats the action name as a
// tool name and runs it through the target's own gateway, so the target
// executes strictly under its own manifest.
type ToolActor struct {
	authCtx *resolver.AuthorizedContext
}

// NewToolActor is a Factory.
func NewToolActor(authCtx *resolver.AuthorizedContext) Dispatchable {
	return &ToolActor{authCtx: authCtx}
}

func (a *ToolActor) ExecuteAction(ctx context.Context, req ActionRequest) (map[string]any, error) {
	args := make(map[string]any, len(req.Params)+3)
	for k, v := range req.Params {
		args[k] = v
	}
	if req.TargetType != "" {
		args["target_type"] = req.TargetType
	}
	if req.TargetResourceID != "" {
		args["target_resource_id"] = req.TargetResourceID
	}
	args["invoked_by"] = req.InvokedBy

	return a.authCtx.Tools.Run(ctx, req.Action, args)
}
