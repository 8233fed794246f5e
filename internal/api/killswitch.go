package api

import (
	"net/http"

	"github.com/triage-ai/warden/internal/killswitch"
	"github.com/triage-ai/warden/internal/store"
)

func (d *Dependencies) handleSetKillSwitch(w http.ResponseWriter, r *http.Request) {
	subjectKind := r.PathValue("subject_kind")
	subjectID := r.PathValue("subject_id")

	if subjectKind != killswitch.SubjectActor && subjectKind != killswitch.SubjectBackend {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "subject_kind must be 'actor' or 'backend'"})
		return
	}

	var req SetKillSwitchReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	row, err := d.Store.SetKillSwitch(r.Context(), subjectKind, subjectID, req.Disabled, req.Reason)
	if err != nil {
		d.Logger.Error("failed to set kill-switch", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to set kill-switch"})
		return
	}
	writeJSON(w, http.StatusOK, killSwitchToResp(row))
}

func (d *Dependencies) handleListKillSwitches(w http.ResponseWriter, r *http.Request) {
	rows, err := d.Store.ListKillSwitches(r.Context())
	if err != nil {
		d.Logger.Error("failed to list kill-switches", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list kill-switches"})
		return
	}

	resp := make([]KillSwitchResp, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, killSwitchToResp(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

func killSwitchToResp(row *store.KillSwitchRow) KillSwitchResp {
	return KillSwitchResp{
		SubjectKind: row.SubjectKind,
		SubjectID:   row.SubjectID,
		Disabled:    row.Disabled,
		Reason:      row.Reason,
		UpdatedAt:   row.UpdatedAt,
	}
}
