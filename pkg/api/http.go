// Package api exposes the chat core over HTTP. Handlers are a thin
// transport: they decode requests, resolve the verified caller and map core
// errors onto status codes; all rules live in pkg/chat and below.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"matchchat/pkg/api/handlers"
	"matchchat/pkg/auth"
	"matchchat/pkg/chat"
)

// NewRouter builds the /v1 API router. maxBody limits request body size in
// bytes (0 disables the limit).
func NewRouter(svc *chat.Service, maxBody int64) *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	if maxBody > 0 {
		v1.Use(bodyLimit(maxBody))
	}
	v1.Use(mux.MiddlewareFunc(auth.RequireSignedUser))
	handlers.Register(v1, svc)
	return r
}

func bodyLimit(n int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
