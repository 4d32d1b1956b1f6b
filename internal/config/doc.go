// Package config loads, normalizes, and validates kodarr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the KODARR_CONFIG and
// KODARR_STATE_DIR environment fallbacks. The Config type centralizes the
// Kodi host list, the Radarr-to-Kodi path mappings, the per-event
// notification toggles, and the library behaviour switches so the CLI and the
// event workflows discover everything in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, priority-ordered hosts, and clear validation errors.
package config
