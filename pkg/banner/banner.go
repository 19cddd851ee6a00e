// Package banner prints the startup summary.
package banner

import (
	"fmt"

	"matchchat/pkg/config"
)

// Print writes a short startup summary to stdout.
func Print(cfg *config.Config, version string) {
	scheme := "http"
	if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		scheme = "https"
	}
	fmt.Printf("matchchat %s\n", version)
	fmt.Printf("  listening on %s://%s\n", scheme, cfg.Addr())
	fmt.Printf("  db path      %s\n", cfg.Server.DBPath)
	if cfg.Notify.NATSURL != "" {
		fmt.Printf("  notify       nats %s\n", cfg.Notify.NATSURL)
	}
}
