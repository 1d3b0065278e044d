package config

import (
	"os"
	"time"
)

// FromEnv overlays TETHER_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TETHER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TETHER_REMOTE_ENDPOINT"); v != "" {
		cfg.RemoteEndpoint = v
	}
	if v := os.Getenv("TETHER_READY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReadyTimeout = d
		}
	}
	if v := os.Getenv("TETHER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TETHER_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TETHER_FSYNC"); v != "" {
		cfg.Fsync = v
	}
}
