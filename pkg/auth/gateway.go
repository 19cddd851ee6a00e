package auth

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"matchchat/pkg/logger"
	"matchchat/pkg/utils"
)

// Middleware authenticates requests, applies CORS headers, IP whitelist
// checks and per-key rate limiting. Health endpoints pass unauthenticated
// for probes.
func Middleware(cfg SecConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-User-ID,X-User-Signature")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if len(cfg.IPWhitelist) > 0 {
				ip := clientIP(r)
				if !ipWhitelisted(ip, cfg.IPWhitelist) {
					utils.JSONError(w, http.StatusForbidden, "forbidden")
					logger.Log.Warn("request_blocked", zap.String("reason", "ip_not_whitelisted"), zap.String("ip", ip), zap.String("path", r.URL.Path))
					return
				}
			}

			// unauthenticated health checks for probes
			if (r.URL.Path == "/healthz" || r.URL.Path == "/readyz") && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			role, key, hasAPIKey := authenticate(r, cfg)
			if role == RoleUnauth || !hasAPIKey {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				logger.Log.Warn("request_unauthorized", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
				return
			}
			roleName := "frontend"
			if role == RoleBackend {
				roleName = "backend"
			}
			r.Header.Set("X-Role-Name", roleName)

			if !limiters.Allow(key) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Log.Warn("rate_limited", zap.String("path", r.URL.Path))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, whitelist []string) bool {
	parsed := net.ParseIP(ip)
	for _, w := range whitelist {
		if w == ip {
			return true
		}
		if _, cidr, err := net.ParseCIDR(w); err == nil && parsed != nil && cidr.Contains(parsed) {
			return true
		}
	}
	return false
}
