// Package services defines shared utilities consumed by the library
// coordinator, the event workflows, and the Kodi host integration.
//
// Key responsibilities:
//   - Context helpers that stamp the Radarr event kind, the Kodi host name,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify transport,
//     authentication, protocol, timeout, and remote failures so callers can
//     decide whether a host is merely unavailable or the event must abort.
//
// Use these helpers when wiring new workflow logic so operational behaviour
// (error classification, observability) stays uniform across hosts.
package services
