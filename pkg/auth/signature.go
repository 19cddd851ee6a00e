package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"matchchat/pkg/config"
	"matchchat/pkg/logger"
	"matchchat/pkg/utils"
)

type ctxUserKey struct{}

// RequireSignedUser verifies the HMAC signature headers and injects the
// verified user id into the request context. Backend callers may instead
// pass a bare X-User-ID without a signature.
func RequireSignedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if role == "backend" && sig == "" {
			if uid, ok := parseUserID(userID); ok {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, uid))
			}
			next.ServeHTTP(w, r)
			return
		}

		if sig == "" || userID == "" {
			logger.Log.Warn("missing_signature_headers", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			utils.JSONError(w, http.StatusUnauthorized, "missing signature headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Log.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}

		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Log.Warn("invalid_signature", zap.String("user", userID))
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		uid, okID := parseUserID(userID)
		if !okID {
			utils.JSONError(w, http.StatusUnauthorized, "invalid user id")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the verified user id, or 0 when absent.
func UserIDFromContext(ctx context.Context) int64 {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

func parseUserID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
