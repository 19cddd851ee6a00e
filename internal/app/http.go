package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"matchchat/pkg/api"
	"matchchat/pkg/auth"
	"matchchat/pkg/telemetry"
)

const shutdownGrace = 10 * time.Second

// setupHTTPHandlers mounts the API plus operational endpoints.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	maxBody, _ := a.cfg.MaxBodyBytes()
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/", api.NewRouter(a.svc, maxBody))
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/metrics", promhttp.Handler())
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !a.st.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + a.version + `"}`))
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// startHTTP builds the handler chain, starts the HTTP server in a goroutine
// and returns a channel that will carry any server error.
func (a *App) startHTTP() <-chan error {
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)

	secCfg := auth.SecConfig{
		AllowedOrigins: append([]string{}, a.cfg.Security.CORS.AllowedOrigins...),
		RPS:            a.cfg.Security.RateLimit.RPS,
		Burst:          a.cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, a.cfg.Security.IPWhitelist...),
		BackendKeys:    map[string]struct{}{},
		FrontendKeys:   map[string]struct{}{},
	}
	for _, k := range a.cfg.Security.APIKeys.Backend {
		secCfg.BackendKeys[k] = struct{}{}
	}
	for _, k := range a.cfg.Security.APIKeys.Frontend {
		secCfg.FrontendKeys[k] = struct{}{}
	}

	wrapped := auth.Middleware(secCfg)(mux)
	wrapped = telemetry.Middleware(wrapped)

	a.srv = &http.Server{Addr: a.cfg.Addr(), Handler: wrapped}

	errCh := make(chan error, 1)
	go func() {
		cert := a.cfg.Server.TLS.CertFile
		key := a.cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}
