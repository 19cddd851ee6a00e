package utils

import (
	"encoding/json"
	"net/http"
)

// JSONWrite encodes v as the response body under application/json. A zero
// status leaves the header for a later WriteHeader call.
func JSONWrite(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}

// JSONError emits the {"error": ...} envelope every failure response shares.
func JSONError(w http.ResponseWriter, status int, msg string) {
	_ = JSONWrite(w, status, map[string]string{"error": msg})
}
