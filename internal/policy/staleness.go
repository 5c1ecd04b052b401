// Package policy holds the staleness rules deciding when a cached snapshot
// is fresh enough to skip a remote call. Pure functions, no I/O.
package policy

import "time"

// SnapshotMeta is the slice of snapshot state staleness decisions need.
type SnapshotMeta struct {
	LastUpdated    int64 // epoch ms; 0 means never successfully fetched
	HasInitialized bool
}

// IsFresh reports whether data stamped at lastUpdated (epoch ms) is still
// within its TTL at now. A zero lastUpdated is never fresh.
func IsFresh(lastUpdated int64, ttl time.Duration, now time.Time) bool {
	return lastUpdated > 0 && now.UnixMilli()-lastUpdated < ttl.Milliseconds()
}

// ShouldRefetch reports whether a remote call is warranted: forced refetches
// always go through, never-initialized snapshots must fetch, and stale
// snapshots fetch unless one is already in flight for the resource.
func ShouldRefetch(meta SnapshotMeta, ttl time.Duration, now time.Time, force, inFlight bool) bool {
	if force {
		return true
	}
	if !meta.HasInitialized {
		return true
	}
	return !IsFresh(meta.LastUpdated, ttl, now) && !inFlight
}
