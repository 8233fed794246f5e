package api

import (
	"net/http"
	"time"

	"github.com/triage-ai/warden/internal/auditread"
	"github.com/triage-ai/warden/internal/invoke"
	"github.com/triage-ai/warden/internal/resolver"
	"github.com/triage-ai/warden/internal/store"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store    *store.Store
	Keys     KeyLookup
	Resolver *resolver.CapabilityResolver
	Invoker  *invoke.Gateway
	Allow    *invoke.AllowList
	Reader   *auditread.Reader // nil if ClickHouse unavailable
	Logger   *zap.Logger
	CacheTTL time.Duration
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Mediation endpoints (auth required via Bearer wdn_ token)
	mux.HandleFunc("POST /v1/actors/{actor_id}/resolve", deps.authMiddleware(deps.handleResolveActor))
	mux.HandleFunc("POST /v1/actors/{actor_id}/tools/{tool_name}/run", deps.authMiddleware(deps.handleRunTool))
	mux.HandleFunc("POST /v1/invocations", deps.authMiddleware(deps.handleInvoke))

	// Manifest CRUD (no auth — dashboard auth added later)
	mux.HandleFunc("GET /api/warden/actors", deps.handleListManifests)
	mux.HandleFunc("GET /api/warden/actors/{actor_id}/manifest", deps.handleGetManifest)
	mux.HandleFunc("PUT /api/warden/actors/{actor_id}/manifest", deps.handleUpsertManifest)
	mux.HandleFunc("DELETE /api/warden/actors/{actor_id}/manifest", deps.handleDeleteManifest)

	// Invocation allow-list (no auth)
	mux.HandleFunc("GET /api/warden/actors/{actor_id}/callers", deps.handleListCallers)
	mux.HandleFunc("PUT /api/warden/actors/{actor_id}/callers/{caller_id}", deps.handleAllowCaller)
	mux.HandleFunc("DELETE /api/warden/actors/{actor_id}/callers/{caller_id}", deps.handleRevokeCaller)

	// API-tool catalog (no auth)
	mux.HandleFunc("GET /api/warden/tools", deps.handleListAPITools)
	mux.HandleFunc("GET /api/warden/tools/{tool_name}", deps.handleGetAPITool)
	mux.HandleFunc("PUT /api/warden/tools/{tool_name}", deps.handleUpsertAPITool)
	mux.HandleFunc("DELETE /api/warden/tools/{tool_name}", deps.handleDeleteAPITool)

	// Kill-switches (no auth)
	mux.HandleFunc("GET /api/warden/kill-switches", deps.handleListKillSwitches)
	mux.HandleFunc("PUT /api/warden/kill-switches/{subject_kind}/{subject_id}", deps.handleSetKillSwitch)

	// Service keys (no auth)
	mux.HandleFunc("POST /api/warden/service-keys", deps.handleCreateServiceKey)
	mux.HandleFunc("GET /api/warden/service-keys", deps.handleListServiceKeys)
	mux.HandleFunc("DELETE /api/warden/service-keys/{key_id}", deps.handleDeleteServiceKey)

	// Audit trail (no auth)
	mux.HandleFunc("GET /api/warden/events", deps.handleListEvents)
	mux.HandleFunc("GET /api/warden/events/{event_id}", deps.handleGetEvent)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
