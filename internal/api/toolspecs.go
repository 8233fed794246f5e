package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/triage-ai/warden/internal/store"
	"github.com/triage-ai/warden/internal/tools"
)

var validMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

func (d *Dependencies) handleListAPITools(w http.ResponseWriter, r *http.Request) {
	rows, err := d.Store.ListAPITools(r.Context())
	if err != nil {
		d.Logger.Error("failed to list tools", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list tools"})
		return
	}

	resp := make([]APIToolResp, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, apiToolToResp(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetAPITool(w http.ResponseWriter, r *http.Request) {
	toolName := r.PathValue("tool_name")
	row, err := d.Store.GetAPITool(r.Context(), toolName)
	if err != nil {
		d.Logger.Error("failed to get tool", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get tool"})
		return
	}
	if row == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found."})
		return
	}
	writeJSON(w, http.StatusOK, apiToolToResp(row))
}

func (d *Dependencies) handleUpsertAPITool(w http.ResponseWriter, r *http.Request) {
	toolName := r.PathValue("tool_name")

	var req UpsertAPIToolReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	var spec tools.APIToolSpec
	if err := json.Unmarshal(req.Spec, &spec); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid tool spec"})
		return
	}
	if detail := validateToolSpec(toolName, &spec); detail != "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: detail})
		return
	}

	// Store the normalized spec so the catalog never sees a name mismatch.
	spec.ToolName = toolName
	normalized, err := json.Marshal(&spec)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid tool spec"})
		return
	}

	row, err := d.Store.UpsertAPITool(r.Context(), toolName, normalized)
	if err != nil {
		d.Logger.Error("failed to upsert tool", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to upsert tool"})
		return
	}
	writeJSON(w, http.StatusOK, apiToolToResp(row))
}

func (d *Dependencies) handleDeleteAPITool(w http.ResponseWriter, r *http.Request) {
	toolName := r.PathValue("tool_name")
	deleted, err := d.Store.DeleteAPITool(r.Context(), toolName)
	if err != nil {
		d.Logger.Error("failed to delete tool", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete tool"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Tool not found."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateToolSpec checks the fields the executor depends on. Returns an
// empty string when the spec is acceptable.
func validateToolSpec(toolName string, spec *tools.APIToolSpec) string {
	if spec.ToolName != "" && spec.ToolName != toolName {
		return "spec tool_name does not match URL"
	}
	if !validMethods[strings.ToUpper(spec.Method)] {
		return "method must be a valid HTTP method"
	}
	if spec.BaseURLEnvVar == "" {
		return "base_url_env_var is required"
	}
	if spec.PathTemplate == "" || !strings.HasPrefix(spec.PathTemplate, "/") {
		return "path_template must start with /"
	}
	for _, p := range spec.Parameters {
		if p.Name == "" {
			return "parameter name is required"
		}
		switch p.Location {
		case tools.InPath, tools.InQuery, tools.InBody:
		default:
			return "parameter location must be 'path', 'query', or 'body'"
		}
	}
	return ""
}

func apiToolToResp(row *store.APIToolRow) APIToolResp {
	return APIToolResp{
		ToolName:  row.ToolName,
		Spec:      row.Spec,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
