// Package app wires configuration, storage, collaborators and the HTTP
// server into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"matchchat/pkg/banner"
	"matchchat/pkg/blob"
	"matchchat/pkg/chat"
	"matchchat/pkg/config"
	"matchchat/pkg/logger"
	"matchchat/pkg/notify"
	"matchchat/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string

	st       *store.Store
	svc      *chat.Service
	notifier notify.Notifier
	elig     chat.Eligibility
	promoter blob.Promoter

	srv *http.Server
}

// Option overrides a default collaborator when constructing the App.
type Option func(*App)

// WithEligibility wires the match-policy collaborator consulted on chat
// starts. Without it every chat request is allowed.
func WithEligibility(e chat.Eligibility) Option {
	return func(a *App) { a.elig = e }
}

// WithPromoter wires the attachment promoter invoked after image posts.
func WithPromoter(p blob.Promoter) Option {
	return func(a *App) { a.promoter = p }
}

// New validates the config and initializes resources that do not require a
// running context (store, collaborators, chat service). Call Run to start
// the HTTP server and block until shutdown.
func New(cfg *config.Config, version string, opts ...Option) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, version: version, elig: chat.AllowAll{}, promoter: blob.NopPromoter{}}
	for _, o := range opts {
		o(a)
	}

	rc := &config.RuntimeConfig{
		BackendKeys:  map[string]struct{}{},
		FrontendKeys: map[string]struct{}{},
		SigningKeys:  map[string]struct{}{},
	}
	for _, k := range cfg.Security.APIKeys.Backend {
		rc.BackendKeys[k] = struct{}{}
		rc.SigningKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Frontend {
		rc.FrontendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.SigningKeys {
		rc.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(rc)

	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Server.DBPath, err)
	}

	a.notifier = notify.Nop{}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.ConnectNATS(cfg.Notify.NATSURL, cfg.Notify.SubjectPrefix)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.notifier = n
	}

	a.st = st
	a.svc = chat.New(st, a.elig, a.notifier, a.promoter)
	return a, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or a fatal
// server error occurs. Resources are released before returning.
func (a *App) Run(ctx context.Context) error {
	banner.Print(a.cfg, a.version)

	errCh := a.startHTTP()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			runErr = err
		}
	}
	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Log.Warn("http_shutdown_failed", zap.Error(err))
		}
	}
	a.notifier.Close()
	if err := a.st.Close(); err != nil {
		logger.Log.Warn("store_close_failed", zap.Error(err))
	}
}

func validateConfig(cfg *config.Config) error {
	if cfg.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if _, err := cfg.MaxBodyBytes(); err != nil {
		return err
	}
	tls := cfg.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("server.tls requires both cert_file and key_file")
	}
	return nil
}
