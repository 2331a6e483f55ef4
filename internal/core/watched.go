package core

import "github.com/mikey-austin/shoko_nav/pkg/nav"

// Trackable is an item whose watched state can be followed.
type Trackable interface {
	Playable() bool
	Status() nav.WatchedStatus
}

// WatchedStateTracker finds the continue position in an episode listing.
type WatchedStateTracker struct{}

// FirstUnwatched returns the index, within the playable items, of the first
// item not fully watched. It returns the playable count when all are watched.
func (WatchedStateTracker) FirstUnwatched(items []Trackable) int {
	index := 0
	for _, item := range items {
		if item == nil || !item.Playable() {
			continue
		}
		if item.Status() != nav.Watched {
			return index
		}
		index++
	}
	return index
}

// Counts returns the watched and total counts over the playable items.
func (WatchedStateTracker) Counts(items []Trackable) (watched int, total int) {
	for _, item := range items {
		if item == nil || !item.Playable() {
			continue
		}
		total++
		if item.Status() == nav.Watched {
			watched++
		}
	}
	return watched, total
}
