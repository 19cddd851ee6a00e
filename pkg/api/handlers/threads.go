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

// threadView is the wire representation of a thread, including the derived
// uploads gate and the caller's own consent flag.
type threadView struct {
	models.Thread
	UploadsEnabled   bool  `json:"uploads_enabled"`
	MyConsent        bool  `json:"my_consent"`
	OtherParticipant int64 `json:"other_participant"`
}

func viewFor(t *models.Thread, user int64) threadView {
	role, _ := t.RoleOf(user)
	other, _ := t.OtherParticipant(user)
	return threadView{
		Thread:           *t,
		UploadsEnabled:   t.UploadsEnabled(),
		MyConsent:        t.Agrees(role),
		OtherParticipant: other,
	}
}

// startChat handles POST /v1/chats: find or create the thread between the
// caller and the requested recipient.
func (h *handlerSet) startChat(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Recipient int64 `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Recipient <= 0 {
		utils.JSONError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	t, err := h.svc.StartOrResumeChat(r.Context(), uid, req.Recipient, time.Now())
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, viewFor(t, uid))
}

// getThread handles GET /v1/threads/{id}; participants only.
func (h *handlerSet) getThread(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetThread(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	if !t.IsParticipant(uid) {
		writeCoreError(w, r, errdefs.ErrForbidden)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, viewFor(t, uid))
}

// setConsent handles PUT /v1/threads/{id}/consent: the caller sets their
// own upload-consent flag.
func (h *handlerSet) setConsent(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Agree bool `json:"agree"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.svc.SetMyConsent(r.Context(), mux.Vars(r)["id"], uid, req.Agree)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, viewFor(t, uid))
}
