package api

import (
	"encoding/json"
	"net/http"

	"github.com/triage-ai/warden/internal/store"
	"go.uber.org/zap"
)

var validRiskTiers = map[string]bool{
	"read":        true,
	"write":       true,
	"destructive": true,
}

func (d *Dependencies) handleListManifests(w http.ResponseWriter, r *http.Request) {
	rows, err := d.Store.ListManifestRows(r.Context())
	if err != nil {
		d.Logger.Error("failed to list manifests", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list manifests"})
		return
	}

	resp := make([]ManifestResp, 0, len(rows))
	for _, m := range rows {
		resp = append(resp, manifestToResp(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	actorID := r.PathValue("actor_id")
	row, err := d.Store.GetManifestRow(r.Context(), actorID)
	if err != nil {
		d.Logger.Error("failed to get manifest", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get manifest"})
		return
	}
	if row == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Manifest not found."})
		return
	}
	writeJSON(w, http.StatusOK, manifestToResp(row))
}

func (d *Dependencies) handleUpsertManifest(w http.ResponseWriter, r *http.Request) {
	actorID := r.PathValue("actor_id")

	var req UpsertManifestReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if !validRiskTiers[req.RiskTier] {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "risk_tier must be 'read', 'write', or 'destructive'"})
		return
	}
	if req.AllowedTools == nil {
		req.AllowedTools = []string{}
	}
	if req.PolicyIDs == nil {
		req.PolicyIDs = []string{}
	}

	allowedTools, err := json.Marshal(req.AllowedTools)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid allowed_tools"})
		return
	}
	policyIDs, err := json.Marshal(req.PolicyIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid policy_ids"})
		return
	}

	row, err := d.Store.UpsertManifest(r.Context(), actorID, store.UpsertManifestParams{
		RiskTier:     req.RiskTier,
		AllowedTools: allowedTools,
		PolicyIDs:    policyIDs,
		LLMBackend:   req.LLMBackend,
	})
	if err != nil {
		d.Logger.Error("failed to upsert manifest", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to upsert manifest"})
		return
	}
	writeJSON(w, http.StatusOK, manifestToResp(row))
}

func (d *Dependencies) handleDeleteManifest(w http.ResponseWriter, r *http.Request) {
	actorID := r.PathValue("actor_id")
	deleted, err := d.Store.DeleteManifest(r.Context(), actorID)
	if err != nil {
		d.Logger.Error("failed to delete manifest", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete manifest"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Manifest not found."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func manifestToResp(m *store.ManifestRow) ManifestResp {
	return ManifestResp{
		ActorID:      m.ActorID,
		Version:      m.Version,
		RiskTier:     m.RiskTier,
		AllowedTools: m.AllowedTools,
		PolicyIDs:    m.PolicyIDs,
		LLMBackend:   m.LLMBackend,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// zapError is a helper to create a zap field from an error.
func zapError(err error) zap.Field {
	return zap.Error(err)
}
