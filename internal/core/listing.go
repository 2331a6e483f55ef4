package core

import (
	"errors"

	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// ErrListingClosed is returned when a listing is finished or discarded twice.
var ErrListingClosed = errors.New("listing already closed")

// Listing accumulates one screen. It is owned by a single route invocation
// and must be finished or discarded exactly once.
type Listing struct {
	logger *zap.Logger
	screen nav.Screen
	closed bool
}

// NewListing returns an open, empty listing.
func NewListing(logger *zap.Logger) *Listing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listing{
		logger: logger,
		screen: nav.Screen{Items: []nav.DisplayItem{}, SelectIndex: -1},
	}
}

func (l *Listing) mutable(op string) bool {
	if l.closed {
		l.logger.Warn("listing mutated after close", zap.String("op", op))
		return false
	}
	return true
}

// Append adds an item at the end.
func (l *Listing) Append(item nav.DisplayItem, container bool) {
	if !l.mutable("append") {
		return
	}
	item.Container = container
	l.screen.Items = append(l.screen.Items, item)
}

// Insert adds an item at pos, clamped to the current bounds.
func (l *Listing) Insert(pos int, item nav.DisplayItem, container bool) {
	if !l.mutable("insert") {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.screen.Items) {
		pos = len(l.screen.Items)
	}
	item.Container = container
	l.screen.Items = append(l.screen.Items, nav.DisplayItem{})
	copy(l.screen.Items[pos+1:], l.screen.Items[pos:])
	l.screen.Items[pos] = item
}

func (l *Listing) SetContent(content string) {
	if l.mutable("content") {
		l.screen.Content = content
	}
}

func (l *Listing) SetCached() {
	if l.mutable("cached") {
		l.screen.Cacheable = true
	}
}

// AddSortMethods exposes sort methods, ignoring duplicates.
func (l *Listing) AddSortMethods(methods ...string) {
	if !l.mutable("sort methods") {
		return
	}
	for _, m := range methods {
		seen := false
		for _, have := range l.screen.SortMethods {
			if have == m {
				seen = true
				break
			}
		}
		if !seen {
			l.screen.SortMethods = append(l.screen.SortMethods, m)
		}
	}
}

func (l *Listing) SetDefaultSort(method string) {
	if l.mutable("default sort") {
		l.screen.DefaultSort = method
	}
}

func (l *Listing) SetSelectIndex(index int) {
	if l.mutable("select index") {
		l.screen.SelectIndex = index
	}
}

func (l *Listing) Len() int {
	return len(l.screen.Items)
}

// Items returns a copy of the items built so far.
func (l *Listing) Items() []nav.DisplayItem {
	out := make([]nav.DisplayItem, len(l.screen.Items))
	copy(out, l.screen.Items)
	return out
}

func (l *Listing) Closed() bool {
	return l.closed
}

// Finish closes the listing and returns the successful screen.
func (l *Listing) Finish() (nav.Screen, error) {
	if l.closed {
		return nav.Screen{}, ErrListingClosed
	}
	l.closed = true
	screen := l.screen
	screen.Items = l.Items()
	screen.Success = true
	return screen, nil
}

// Discard closes the listing and drops everything built so far.
func (l *Listing) Discard() error {
	if l.closed {
		return ErrListingClosed
	}
	l.closed = true
	l.screen = nav.Screen{Content: l.screen.Content, Items: []nav.DisplayItem{}, SelectIndex: -1}
	return nil
}

// failed returns the screen reported for a failed or discarded invocation.
func (l *Listing) failed() nav.Screen {
	return nav.Screen{Content: l.screen.Content, Items: []nav.DisplayItem{}, SelectIndex: -1}
}
