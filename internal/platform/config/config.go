package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CHATPILOT_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Backend BackendConfig `koanf:"backend"`
	Auth    AuthConfig    `koanf:"auth"`
	CORS    CORSConfig    `koanf:"cors"`
	Session SessionConfig `koanf:"session"`
	Audit   AuditConfig   `koanf:"audit"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// BackendConfig points at the REST service that owns tenants, users and grants.
type BackendConfig struct {
	URL         string `koanf:"url"`
	TimeoutSecs int    `koanf:"timeoutsecs"`
}

type AuthConfig struct {
	// SigningKey is the backend's JWT secret. Empty means tokens are decoded
	// without signature verification.
	SigningKey string `koanf:"signingkey"`
	DevMode    bool   `koanf:"devmode"`
	DevRole    string `koanf:"devrole"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowedorigins"`
}

type SessionConfig struct {
	Path string `koanf:"path"`
}

type AuditConfig struct {
	BufferSize      int `koanf:"buffer_size"`
	BatchSize       int `koanf:"batch_size"`
	FlushIntervalMs int `koanf:"flush_interval_ms"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"log.level":               "info",
		"log.format":              "json",
		"backend.url":             "http://localhost:8001",
		"backend.timeoutsecs":     15,
		"auth.devmode":            false,
		"auth.devrole":            "tenant_admin",
		"cors.allowedorigins":     []string{"http://localhost:3000"},
		"audit.buffer_size":       1024,
		"audit.batch_size":        50,
		"audit.flush_interval_ms": 500,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// CHATPILOT_SERVER_PORT -> server.port, CHATPILOT_AUDIT_BATCH_SIZE -> audit.batch_size.
	// Only the first underscore separates section from key.
	// CHATPILOT_CORS_ALLOWEDORIGINS is a comma-separated list.
	_ = k.Load(env.ProviderWithValue(envPrefix, ".", func(s, v string) (string, any) {
		key := strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
		if key == "cors.allowedorigins" {
			return key, splitList(v)
		}
		return key, v
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SessionPath resolves where the CLI keeps its session file.
func (c *Config) SessionPath() (string, error) {
	if c.Session.Path != "" {
		return c.Session.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatpilot", "session.json"), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
