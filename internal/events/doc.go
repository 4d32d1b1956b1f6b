// Package events turns one parsed Radarr event into the matching Kodi
// workflow: library mutation with watched-state reconciliation, playback
// preservation across file replacement, and GUI notifications.
//
// A Handler is built per process from the loaded configuration and a
// Library (normally *library.Manager). Dispatch runs a single event to
// completion; every per-host failure is absorbed below it, so the only
// errors it returns are context cancellation, bounded retry exhaustion, and
// a missing NFO file.
package events
