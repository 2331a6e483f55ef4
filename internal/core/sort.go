package core

import (
	"fmt"
	"sort"

	"github.com/mikey-austin/shoko_nav/internal/ports"
)

// Sort methods a renderer may offer.
const (
	SortUnsorted = "unsorted"
	SortLabel    = "label"
	SortDate     = "date"
	SortRating   = "rating"
	SortYear     = "year"
	SortEpisode  = "episode"
	SortSize     = "size"
)

// SortPolicy decides which sort methods apply to a listing. It only sets
// hints and never reorders built items.
type SortPolicy struct {
	Settings ports.Settings
}

// Methods returns the sort methods for listings of kind, default first.
func (SortPolicy) Methods(kind EntityKind) []string {
	switch kind {
	case EntityFilter, EntityGroup, EntitySeries, EntitySearchResults:
		return []string{SortUnsorted, SortLabel, SortDate, SortRating, SortYear}
	case EntityEpisodeType:
		return []string{SortUnsorted, SortLabel}
	case EntityEpisode:
		return []string{SortEpisode, SortLabel, SortDate, SortRating}
	case EntityFile:
		return []string{SortLabel, SortSize}
	default:
		return []string{SortUnsorted}
	}
}

// AddSortMethods exposes the methods for kind on the listing.
func (p SortPolicy) AddSortMethods(listing *Listing, kind EntityKind) {
	listing.AddSortMethods(p.Methods(kind)...)
}

// ApplyDefault sets the default sort hint from settings, falling back to the
// canonical default for kind. Calling it again has no further effect.
func (p SortPolicy) ApplyDefault(listing *Listing, kind EntityKind) {
	listing.SetDefaultSort(p.Default(kind))
}

// Default returns the configured default method for kind.
func (p SortPolicy) Default(kind EntityKind) string {
	methods := p.Methods(kind)
	key := SettingDefaultSortGroup
	if kind == EntityEpisode {
		key = SettingDefaultSortEps
	}
	want := settingsView{p.Settings}.String(key)
	for _, m := range methods {
		if m == want {
			return m
		}
	}
	return methods[0]
}

// SortEntities orders the root menu. When every entity has sort index 0 the
// input order is kept; otherwise the result is stable-sorted by
// (sort index, name). On failure the input order is returned with a
// KindSort error.
func SortEntities(entities []Entity) (out []Entity, err error) {
	mixed := false
	for _, e := range entities {
		if e.Order() != 0 {
			mixed = true
			break
		}
	}
	if !mixed {
		return entities, nil
	}

	sorted := make([]Entity, len(entities))
	copy(sorted, entities)
	defer func() {
		if r := recover(); r != nil {
			out = entities
			err = &Error{Kind: KindSort, Msg: "sort root menu", Err: fmt.Errorf("%v", r)}
		}
	}()
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Order() != b.Order() {
			return a.Order() < b.Order()
		}
		return a.SortKey() < b.SortKey()
	})
	return sorted, nil
}
