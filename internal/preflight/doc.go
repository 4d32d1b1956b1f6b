// Package preflight provides readiness checks for the Kodi hosts and
// filesystem paths that kodarr depends on.
//
// These checks run in two contexts:
//   - The CLI "kodarr status" command uses RunAll and ProbeHosts to display
//     directory health and a per-host reachability table.
//   - "kodarr handle" calls CheckDirectoryAccess on the state directory before
//     taking the event lock, so a broken state directory fails loudly instead
//     of silently dropping preserved playback.
//
// Disabled hosts are reported but never contacted.
package preflight
