// Package library coordinates Kodi library work across every configured host.
//
// Manager applies a first-success-wins policy for removals, metadata copies,
// and catalog lookups, fans notifications and GUI refreshes out to every
// host, and retries scans and cleans across the priority-ordered host list
// until one host completes the job. Catalog snapshots taken around a scan are
// diffed to find the entries that scan added, which drive watched-state
// reconciliation and playback restoration.
//
// Hosts are visited sequentially in priority order. A slow or unreachable
// host delays a phase but never aborts it.
package library
