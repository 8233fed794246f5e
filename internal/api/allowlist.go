package api

import (
	"net/http"
)

// Allow-list edges live in two places: Postgres is the durable record, the
// in-memory AllowList is what the invocation gateway consults. Mutations
// write Postgres first and mirror into memory on success.

func (d *Dependencies) handleListCallers(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("actor_id")
	callers := d.Allow.Callers(targetID)
	if callers == nil {
		callers = []string{}
	}
	writeJSON(w, http.StatusOK, CallersResp{
		TargetActorID: targetID,
		Callers:       callers,
	})
}

func (d *Dependencies) handleAllowCaller(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("actor_id")
	callerID := r.PathValue("caller_id")
	if callerID == targetID {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "An actor cannot be its own caller"})
		return
	}

	if err := d.Store.AddAllowListEdge(r.Context(), targetID, callerID); err != nil {
		d.Logger.Error("failed to add allow-list edge", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to add caller"})
		return
	}
	d.Allow.Allow(targetID, callerID)

	writeJSON(w, http.StatusOK, CallersResp{
		TargetActorID: targetID,
		Callers:       d.Allow.Callers(targetID),
	})
}

func (d *Dependencies) handleRevokeCaller(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("actor_id")
	callerID := r.PathValue("caller_id")

	removed, err := d.Store.RemoveAllowListEdge(r.Context(), targetID, callerID)
	if err != nil {
		d.Logger.Error("failed to remove allow-list edge", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to remove caller"})
		return
	}
	d.Allow.Revoke(targetID, callerID)

	if !removed {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Caller not found."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
