// Package config holds the bridge configuration: data directory resolution,
// file loading (JSON, YAML, or TOML by extension), and TETHER_* environment
// overlays.
package config
