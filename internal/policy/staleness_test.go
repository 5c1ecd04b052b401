package policy

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestIsFresh(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	ttl := 5 * time.Minute

	tests := []struct {
		name        string
		lastUpdated int64
		want        bool
	}{
		{"never fetched", 0, false},
		{"just fetched", now.UnixMilli(), true},
		{"two minutes old", now.UnixMilli() - 120_000, true},
		{"one ms inside ttl", now.UnixMilli() - ttl.Milliseconds() + 1, true},
		{"exactly ttl old", now.UnixMilli() - ttl.Milliseconds(), false},
		{"well past ttl", now.UnixMilli() - 2*ttl.Milliseconds(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFresh(tt.lastUpdated, ttl, now); got != tt.want {
				t.Errorf("IsFresh(%d) = %v, want %v", tt.lastUpdated, got, tt.want)
			}
		})
	}
}

func TestShouldRefetch(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	ttl := 5 * time.Minute
	fresh := SnapshotMeta{LastUpdated: now.UnixMilli() - 1000, HasInitialized: true}
	stale := SnapshotMeta{LastUpdated: now.UnixMilli() - ttl.Milliseconds() - 1, HasInitialized: true}

	tests := []struct {
		name     string
		meta     SnapshotMeta
		force    bool
		inFlight bool
		want     bool
	}{
		{"fresh not forced", fresh, false, false, false},
		{"fresh forced", fresh, true, false, true},
		{"never initialized", SnapshotMeta{}, false, false, true},
		{"stale", stale, false, false, true},
		{"stale but in flight", stale, false, true, false},
		{"stale forced and in flight", stale, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRefetch(tt.meta, ttl, now, tt.force, tt.inFlight); got != tt.want {
				t.Errorf("ShouldRefetch = %v, want %v", got, tt.want)
			}
		})
	}
}

// Freshness property: for positive timestamps, IsFresh holds exactly when
// the snapshot's age is strictly inside the TTL, and a fresh non-forced
// snapshot never triggers a refetch.
func TestFreshnessProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	ttl := 5 * time.Minute

	properties.Property("fresh iff age < ttl", prop.ForAll(
		func(nowMs int64, age int64) bool {
			now := time.UnixMilli(nowMs)
			lastUpdated := nowMs - age
			if lastUpdated <= 0 {
				return !IsFresh(lastUpdated, ttl, now)
			}
			return IsFresh(lastUpdated, ttl, now) == (age < ttl.Milliseconds())
		},
		gen.Int64Range(1_000_000_000_000, 2_000_000_000_000),
		gen.Int64Range(0, 3_600_000),
	))

	properties.Property("fresh and unforced never refetches", prop.ForAll(
		func(nowMs int64, age int64, inFlight bool) bool {
			now := time.UnixMilli(nowMs)
			meta := SnapshotMeta{LastUpdated: nowMs - age, HasInitialized: true}
			if !IsFresh(meta.LastUpdated, ttl, now) {
				return true
			}
			return !ShouldRefetch(meta, ttl, now, false, inFlight)
		},
		gen.Int64Range(1_000_000_000_000, 2_000_000_000_000),
		gen.Int64Range(0, 3_600_000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
