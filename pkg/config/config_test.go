package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  address: "0.0.0.0"
  port: 9191
  db_path: "/tmp/chatdb"
  max_body_size: "256KB"
security:
  signing_keys:
    - "sekrit"
  api_keys:
    backend:
      - "bk1"
    frontend:
      - "fk1"
logging:
  level: "debug"
notify:
  nats_url: "nats://127.0.0.1:4222"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9191", cfg.Addr())
	require.Equal(t, "/tmp/chatdb", cfg.Server.DBPath)
	require.Equal(t, []string{"sekrit"}, cfg.Security.SigningKeys)
	require.Equal(t, []string{"bk1"}, cfg.Security.APIKeys.Backend)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.Notify.NATSURL)

	n, err := cfg.MaxBodyBytes()
	require.NoError(t, err)
	require.Equal(t, int64(256000), n)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Addr())
	require.Equal(t, "./data/chatdb", cfg.Server.DBPath)

	n, err := cfg.MaxBodyBytes()
	require.NoError(t, err)
	require.Equal(t, int64(1000000), n)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MATCHCHAT_ADDR", "10.0.0.5:7777")
	t.Setenv("MATCHCHAT_DB_PATH", "/var/lib/chat")
	t.Setenv("MATCHCHAT_SIGNING_KEYS", "k1, k2 ,")
	t.Setenv("MATCHCHAT_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "10.0.0.5:7777", cfg.Addr())
	require.Equal(t, "/var/lib/chat", cfg.Server.DBPath)
	require.Equal(t, []string{"k1", "k2"}, cfg.Security.SigningKeys)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestRuntimeKeys(t *testing.T) {
	SetRuntime(&RuntimeConfig{
		SigningKeys: map[string]struct{}{"s1": {}},
		BackendKeys: map[string]struct{}{"b1": {}},
	})
	t.Cleanup(func() { SetRuntime(nil) })

	require.Contains(t, GetSigningKeys(), "s1")
	require.Contains(t, GetBackendKeys(), "b1")

	// returned maps are copies
	keys := GetSigningKeys()
	keys["injected"] = struct{}{}
	require.NotContains(t, GetSigningKeys(), "injected")
}
