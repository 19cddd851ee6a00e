// Package auth gates the HTTP surface: API-key roles, per-key rate
// limiting, CORS/IP checks and HMAC verification of the calling user.
package auth

import (
	"net/http"
	"strings"
)

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
}

// authenticate resolves the caller role from the API key carried in
// X-API-Key or an Authorization bearer token.
func authenticate(r *http.Request, cfg SecConfig) (Role, string, bool) {
	key := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if key == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			key = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	if key == "" {
		return RoleUnauth, clientIP(r), false
	}
	if _, ok := cfg.BackendKeys[key]; ok {
		return RoleBackend, key, true
	}
	if _, ok := cfg.FrontendKeys[key]; ok {
		return RoleFrontend, key, true
	}
	return RoleUnauth, key, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
