package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"matchchat/pkg/errdefs"
	"matchchat/pkg/models"
	"matchchat/pkg/utils"
)

// postMessage handles POST /v1/threads/{id}/messages.
func (h *handlerSet) postMessage(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Body   string   `json:"body"`
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	msg, err := h.svc.PostMessage(r.Context(), mux.Vars(r)["id"], uid, req.Body, req.Images, time.Now())
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, msg)
}

// listMessages handles GET /v1/threads/{id}/messages; participants only.
func (h *handlerSet) listMessages(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	threadID := mux.Vars(r)["id"]
	t, err := h.svc.GetThread(r.Context(), threadID)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	if !t.IsParticipant(uid) {
		writeCoreError(w, r, errdefs.ErrForbidden)
		return
	}
	msgs, err := h.svc.ListMessages(r.Context(), threadID)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Thread   string           `json:"thread"`
		Messages []models.Message `json:"messages"`
	}{Thread: threadID, Messages: msgs})
}
