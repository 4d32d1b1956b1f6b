// Package logging assembles structured slog loggers and formatting helpers used
// across kodarr.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so workflow code can
// automatically tag log lines with the Radarr event, the workflow phase, the
// Kodi host, and the correlation ID. The console handler lifts the component,
// host, and correlation ID into the line prefix.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the bridge.
package logging
