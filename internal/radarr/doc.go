// Package radarr turns the environment handed to a Radarr custom script into
// a typed Event.
//
// Radarr exports one variable per field with a Radarr_ prefix. Names are
// matched case-insensitively, lists arrive pipe-delimited, and an
// unrecognised event type collapses to KindUnknown instead of failing.
// LoadEnvFile reads a captured environment from disk so events can be
// replayed without Radarr.
package radarr
