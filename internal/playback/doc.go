// Package playback preserves playback that a library mutation had to stop so
// it can be restarted once the replacement entry is scanned in.
//
// The store holds a single generation of records. Save overwrites whatever is
// there; LoadAndClear hands the records out exactly once. Write failures are
// logged rather than returned: an event carries on without pause recovery
// instead of aborting.
package playback
