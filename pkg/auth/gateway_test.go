package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func gatewayHandler(cfg SecConfig) http.Handler {
	return Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Role", r.Header.Get("X-Role-Name"))
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddlewareRejectsMissingKey(t *testing.T) {
	h := gatewayHandler(SecConfig{BackendKeys: map[string]struct{}{"bk": {}}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// unknown keys are rejected too
	req := httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil)
	req.Header.Set("X-API-Key", "nope")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareResolvesRoles(t *testing.T) {
	h := gatewayHandler(SecConfig{
		BackendKeys:  map[string]struct{}{"bk": {}},
		FrontendKeys: map[string]struct{}{"fk": {}},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil)
	req.Header.Set("X-API-Key", "bk")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "backend", w.Header().Get("X-Seen-Role"))

	// bearer token carries the key as well
	req = httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil)
	req.Header.Set("Authorization", "Bearer fk")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "frontend", w.Header().Get("X-Seen-Role"))
}

func TestMiddlewareHealthBypass(t *testing.T) {
	h := gatewayHandler(SecConfig{BackendKeys: map[string]struct{}{"bk": {}}})

	for _, path := range []string{"/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestMiddlewareOptionsShortCircuits(t *testing.T) {
	h := gatewayHandler(SecConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		BackendKeys:    map[string]struct{}{"bk": {}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/v1/chats", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareIPWhitelist(t *testing.T) {
	h := gatewayHandler(SecConfig{
		IPWhitelist: []string{"10.0.0.0/8"},
		BackendKeys: map[string]struct{}{"bk": {}},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-API-Key", "bk")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil)
	req.RemoteAddr = "192.168.1.1:5555"
	req.Header.Set("X-API-Key", "bk")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddlewareRateLimits(t *testing.T) {
	h := gatewayHandler(SecConfig{
		RPS:         1,
		Burst:       2,
		BackendKeys: map[string]struct{}{"bk": {}},
	})

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/threads/x", nil)
		req.Header.Set("X-API-Key", "bk")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes[w.Code]++
	}
	require.Equal(t, 2, codes[http.StatusOK])
	require.Equal(t, 3, codes[http.StatusTooManyRequests])
}
