package logger

import (
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Headers carrying credentials; their values never reach the logs.
var redactedHeaders = map[string]struct{}{
	"authorization":    {},
	"x-api-key":        {},
	"x-user-signature": {},
}

// LogRequest emits one entry per incoming request with a flattened,
// credential-masked header summary.
func LogRequest(r *http.Request) {
	Log.Info("incoming_request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.String("headers", headerSummary(r.Header)),
	)
}

func headerSummary(h http.Header) string {
	parts := make([]string, 0, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		v := values[0]
		if _, hidden := redactedHeaders[strings.ToLower(name)]; hidden && v != "" {
			v = "<redacted>"
		}
		parts = append(parts, name+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
