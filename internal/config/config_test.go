package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReadyTimeout != 30*time.Second {
		t.Fatalf("ready timeout %v", cfg.ReadyTimeout)
	}
	if cfg.LogLevel != "info" || cfg.Fsync != "always" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.json")
	body := `{"dataDir":"/tmp/x","remoteEndpoint":"127.0.0.1:9898","logLevel":"debug"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/x" || cfg.RemoteEndpoint != "127.0.0.1:9898" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg: %+v", cfg)
	}
	// untouched fields keep defaults
	if cfg.Fsync != "always" {
		t.Fatalf("fsync default lost: %q", cfg.Fsync)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	body := "dataDir: /tmp/y\nlogFormat: json\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/y" || cfg.LogFormat != "json" {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.toml")
	body := "dataDir = \"/tmp/z\"\nfsync = \"never\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/z" || cfg.Fsync != "never" {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TETHER_DATA_DIR", "/tmp/env")
	t.Setenv("TETHER_READY_TIMEOUT", "5s")
	t.Setenv("TETHER_LOG_LEVEL", "warn")

	cfg := Default()
	FromEnv(&cfg)
	if cfg.DataDir != "/tmp/env" {
		t.Fatalf("data dir %q", cfg.DataDir)
	}
	if cfg.ReadyTimeout != 5*time.Second {
		t.Fatalf("ready timeout %v", cfg.ReadyTimeout)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level %q", cfg.LogLevel)
	}
}

func TestDefaultDataDirXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	got := DefaultDataDir()
	if got != filepath.Join("/tmp/xdg", "tether") {
		t.Fatalf("data dir %q", got)
	}
}

func TestDefaultDataDirNonEmpty(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	if got := DefaultDataDir(); got == "" {
		t.Fatalf("empty data dir")
	}
}
