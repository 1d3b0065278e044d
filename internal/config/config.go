package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the top-level bridge configuration.
type Config struct {
	// DataDir is the local durable storage location. Empty means
	// DefaultDataDir().
	DataDir string `json:"dataDir" yaml:"dataDir" toml:"dataDir"`
	// RemoteEndpoint, when non-empty, makes the node ephemeral and connects
	// it to the given host:port sync endpoint.
	RemoteEndpoint string `json:"remoteEndpoint" yaml:"remoteEndpoint" toml:"remoteEndpoint"`
	// ReadyTimeout bounds the root-loaded / system-ready waits during node
	// bring-up. Zero disables the bound.
	ReadyTimeout time.Duration `json:"readyTimeout" yaml:"readyTimeout" toml:"readyTimeout"`
	// LogLevel is the minimum severity for the process logger.
	LogLevel string `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
	// LogFormat is text or json.
	LogFormat string `json:"logFormat" yaml:"logFormat" toml:"logFormat"`
	// Fsync selects the storage durability mode: always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync" toml:"fsync"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		ReadyTimeout: 30 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
		Fsync:        "always",
	}
}

// Load reads configuration from a JSON, YAML, or TOML file chosen by
// extension. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
