package api

import (
	"net/http"
)

func (d *Dependencies) handleCreateServiceKey(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceKeyReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" || len(req.Name) > 255 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name must be 1-255 characters"})
		return
	}

	key, plainKey, err := d.Store.CreateServiceKey(r.Context(), req.Name)
	if err != nil {
		d.Logger.Error("failed to create service key", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create service key"})
		return
	}

	writeJSON(w, http.StatusCreated, CreateServiceKeyResp{
		ID:           key.ID,
		Name:         key.Name,
		APIKey:       plainKey,
		APIKeyPrefix: key.APIKeyPrefix,
		CreatedAt:    key.CreatedAt,
	})
}

func (d *Dependencies) handleListServiceKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := d.Store.ListServiceKeys(r.Context())
	if err != nil {
		d.Logger.Error("failed to list service keys", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list service keys"})
		return
	}

	resp := make([]ServiceKeyResp, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, ServiceKeyResp{
			ID:           k.ID,
			Name:         k.Name,
			APIKeyPrefix: k.APIKeyPrefix,
			CreatedAt:    k.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleDeleteServiceKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("key_id")
	deleted, err := d.Store.DeleteServiceKey(r.Context(), id)
	if err != nil {
		d.Logger.Error("failed to delete service key", zapError(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete service key"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Service key not found."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
