package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the platform-appropriate local-data directory for
// the node's durable state. The fallback chain is: platform local-data dir,
// then a dotdir under the user's home, then a process-relative path. The
// directory is not created here; callers create it on first use.
func DefaultDataDir() string {
	if dir := localDataDir(); dir != "" {
		return filepath.Join(dir, "tether")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".tether")
	}
	return "tether_data"
}

// localDataDir resolves the OS-specific local application data directory,
// or "" when none applies.
func localDataDir() string {
	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}

	// macOS: ~/Library/Application Support
	if isDir(filepath.Join(home, "Library")) {
		return filepath.Join(home, "Library", "Application Support")
	}

	// Windows: %USERPROFILE%/AppData/Local
	if isDir(filepath.Join(home, "AppData")) {
		return filepath.Join(home, "AppData", "Local")
	}

	// Linux default: ~/.local/share
	if isDir(filepath.Join(home, ".local", "share")) {
		return filepath.Join(home, ".local", "share")
	}

	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
