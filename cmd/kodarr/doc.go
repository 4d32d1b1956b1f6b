// Package main hosts the kodarr CLI entrypoint and command graph.
//
// Radarr invokes "kodarr handle" as a custom script connection, once per
// event, with the event described in its environment. The remaining commands
// are operator tools: host status, ad-hoc notifications, and configuration
// scaffolding. Configuration resolution and structured logging setup live in
// the shared command context so subcommands can focus on their own work.
//
// Keep this package lean: the workflows live in internal/events and
// internal/library; commands only wire them together.
package main
