package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Server is the streaming service base URL, e.g. "https://music.example.com".
	Server string `koanf:"server"`

	// ControlSocket overrides the default control socket path.
	ControlSocket string `koanf:"control_socket"`

	Session SessionConfig `koanf:"session"`

	// MPRIS enables the desktop media-keys integration (default: true).
	MPRIS *bool `koanf:"mpris"`
}

// SessionConfig tunes token refresh behavior.
type SessionConfig struct {
	MarginSeconds  int `koanf:"margin_seconds"`   // refresh this early before expiry (default: 60)
	RetryAttempts  int `koanf:"retry_attempts"`   // refresh retries before giving up (default: 5)
	RetryInitialMS int `koanf:"retry_initial_ms"` // first retry delay (default: 500)
	RetryMaxMS     int `koanf:"retry_max_ms"`     // retry delay cap (default: 30000)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Server = strings.TrimSuffix(cfg.Server, "/")
	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cadenza/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cadenza", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

// SocketPath returns the configured control socket path, defaulting to the
// XDG runtime directory.
func (c *Config) SocketPath() string {
	if c.ControlSocket != "" {
		return expandPath(c.ControlSocket)
	}
	return filepath.Join(xdg.RuntimeDir, "cadenza", "control.sock")
}

// MPRISEnabled reports whether the MPRIS integration should start.
func (c *Config) MPRISEnabled() bool {
	return c.MPRIS == nil || *c.MPRIS
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
