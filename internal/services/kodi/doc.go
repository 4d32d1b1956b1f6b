// Package kodi talks to Kodi hosts over JSON-RPC 2.0.
//
// A Session carries one request/response exchange to a single host, over HTTP
// (HTTPSession) or a persistent WebSocket (WSSession). Sessions never retry;
// failures come back tagged with the internal/services markers so callers can
// classify them with errors.Is.
//
// Client layers typed library, player, and GUI operations over a Session. It
// translates Radarr paths through the configured path mappings, renders them
// in the host's separator convention, polls scan and clean completion, and
// confirms playback start and pause. Every Client operation logs its own
// failures and degrades to an "unavailable" result so a single host can never
// abort an event.
package kodi
