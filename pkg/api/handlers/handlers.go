package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"matchchat/pkg/auth"
	"matchchat/pkg/chat"
	"matchchat/pkg/errdefs"
	"matchchat/pkg/logger"
	"matchchat/pkg/utils"
)

type handlerSet struct {
	svc *chat.Service
}

// Register registers all chat HTTP routes on the provided router.
func Register(r *mux.Router, svc *chat.Service) {
	h := &handlerSet{svc: svc}

	r.HandleFunc("/chats", h.startChat).Methods(http.MethodPost)

	r.HandleFunc("/threads/{id}", h.getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", h.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", h.postMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/consent", h.setConsent).Methods(http.MethodPut)
}

// caller returns the verified user id or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	uid := auth.UserIDFromContext(r.Context())
	if uid == 0 {
		utils.JSONError(w, http.StatusUnauthorized, "user identity required")
		return 0, false
	}
	return uid, true
}

// writeCoreError maps a core error onto its HTTP status. Unexpected errors
// are logged and surfaced as 500 without detail.
func writeCoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := errdefs.HTTPStatus(err)
	if status == http.StatusInternalServerError && !errors.Is(err, errdefs.ErrConflict) {
		logger.Log.Error("request_failed", zap.String("path", r.URL.Path), zap.Error(err))
		utils.JSONError(w, status, "internal error")
		return
	}
	utils.JSONError(w, status, err.Error())
}
