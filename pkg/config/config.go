// Package config loads the service configuration from a YAML file merged
// with environment variables. Flags parsed by the binary win over both.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// ServerConfig holds http, storage and tls settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	DBPath  string `yaml:"db_path"`
	// MaxBodySize is a human-readable size ("1MB", "256KB") limiting
	// request bodies.
	MaxBodySize string    `yaml:"max_body_size"`
	TLS         TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
	} `yaml:"api_keys"`
	// SigningKeys verify X-User-Signature headers (HMAC-SHA256 of the
	// user id).
	SigningKeys []string `yaml:"signing_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NotifyConfig configures the thread-update publisher.
type NotifyConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Load reads the YAML file at path (optional) and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MATCHCHAT_ADDR"); v != "" {
		if host, port, err := net.SplitHostPort(v); err == nil {
			c.Server.Address = host
			if p, err := strconv.Atoi(port); err == nil {
				c.Server.Port = p
			}
		}
	}
	if v := os.Getenv("MATCHCHAT_DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("MATCHCHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MATCHCHAT_NATS_URL"); v != "" {
		c.Notify.NATSURL = v
	}
	if v := os.Getenv("MATCHCHAT_SIGNING_KEYS"); v != "" {
		c.Security.SigningKeys = splitNonEmpty(v)
	}
	if v := os.Getenv("MATCHCHAT_BACKEND_KEYS"); v != "" {
		c.Security.APIKeys.Backend = splitNonEmpty(v)
	}
	if v := os.Getenv("MATCHCHAT_FRONTEND_KEYS"); v != "" {
		c.Security.APIKeys.Frontend = splitNonEmpty(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "./data/chatdb"
	}
	if c.Server.MaxBodySize == "" {
		c.Server.MaxBodySize = "1MB"
	}
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// MaxBodyBytes parses Server.MaxBodySize into bytes.
func (c *Config) MaxBodyBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Server.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("invalid max_body_size %q: %w", c.Server.MaxBodySize, err)
	}
	return int64(n), nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
