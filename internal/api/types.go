package api

import (
	"encoding/json"
	"time"
)

// --- /v1 mediation API ---

// ResolveResp summarizes a freshly built authorized context.
type ResolveResp struct {
	ActorID       string   `json:"actor_id"`
	Version       int      `json:"version"`
	RiskTier      string   `json:"risk_tier"`
	AllowedTools  []string `json:"allowed_tools"`
	PolicyIDs     []string `json:"policy_ids"`
	LLMCapability string   `json:"llm_capability"` // "absent" or "present"
	LLMBackend    string   `json:"llm_backend,omitempty"`
}

// RunToolReq is the JSON body for tool runs.
type RunToolReq struct {
	Args map[string]any `json:"args,omitempty"`
}

// RunToolResp wraps a tool result.
type RunToolResp struct {
	ActorID string         `json:"actor_id"`
	Tool    string         `json:"tool"`
	Result  map[string]any `json:"result"`
}

// --- Manifest admin ---

// UpsertManifestReq is the JSON body for PUT manifest.
type UpsertManifestReq struct {
	RiskTier     string   `json:"risk_tier"`
	AllowedTools []string `json:"allowed_tools"`
	PolicyIDs    []string `json:"policy_ids"`
	LLMBackend   *string  `json:"llm_backend,omitempty"`
}

// ManifestResp mirrors an actor_manifests row.
type ManifestResp struct {
	ActorID      string          `json:"actor_id"`
	Version      int             `json:"version"`
	RiskTier     string          `json:"risk_tier"`
	AllowedTools json.RawMessage `json:"allowed_tools"`
	PolicyIDs    json.RawMessage `json:"policy_ids"`
	LLMBackend   *string         `json:"llm_backend"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// --- Allow-list admin ---

// CallersResp lists the callers permitted to invoke a target.
type CallersResp struct {
	TargetActorID string   `json:"target_actor_id"`
	Callers       []string `json:"callers"`
}

// --- Kill-switch admin ---

// SetKillSwitchReq is the JSON body for PUT kill-switch.
type SetKillSwitchReq struct {
	Disabled bool   `json:"disabled"`
	Reason   string `json:"reason,omitempty"`
}

// KillSwitchResp mirrors a kill_switches row.
type KillSwitchResp struct {
	SubjectKind string    `json:"subject_kind"`
	SubjectID   string    `json:"subject_id"`
	Disabled    bool      `json:"disabled"`
	Reason      string    `json:"reason"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- API-tool catalog admin ---

// UpsertAPIToolReq is the JSON body for PUT tool spec.
type UpsertAPIToolReq struct {
	Spec json.RawMessage `json:"spec"`
}

// APIToolResp mirrors an api_tools row.
type APIToolResp struct {
	ToolName  string          `json:"tool_name"`
	Spec      json.RawMessage `json:"spec"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// --- Service keys ---

// CreateServiceKeyReq is the JSON body for POST service-keys.
type CreateServiceKeyReq struct {
	Name string `json:"name"`
}

// CreateServiceKeyResp includes the plaintext key (shown once).
type CreateServiceKeyResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKey       string    `json:"api_key"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	CreatedAt    time.Time `json:"created_at"`
}

// ServiceKeyResp mirrors a service_keys row (no plaintext key).
type ServiceKeyResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Audit events ---

// AuditEventResp mirrors an audit_events row.
type AuditEventResp struct {
	EventID   string          `json:"event_id"`
	ActorID   string          `json:"actor_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventListResp is a paginated event listing.
type EventListResp struct {
	Events   []AuditEventResp `json:"events"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
