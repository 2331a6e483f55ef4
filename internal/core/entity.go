package core

import (
	"strings"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// EntityKind names an Entity variant.
type EntityKind string

const (
	EntityFilter        EntityKind = "filter"
	EntityGroup         EntityKind = "group"
	EntitySeries        EntityKind = "series"
	EntityEpisodeType   EntityKind = "episode_type"
	EntityEpisode       EntityKind = "episode"
	EntityFile          EntityKind = "file"
	EntitySearchResults EntityKind = "search_results"
	EntityCustom        EntityKind = "custom"
)

// Sizes summarizes the episodes under a container.
type Sizes = ports.Sizes

// Entity is a node of the catalog hierarchy. The set of variants is closed.
type Entity interface {
	Kind() EntityKind
	Key() int
	Title() string
	// Order is the explicit sort index; 0 means keep server order.
	Order() int
	SortKey() string
	Container() bool
	Children() []Entity
	sealed()
}

// Filter is a saved view over groups.
type Filter struct {
	ID        int
	Name      string
	Art       string
	SortIndex int
	Sizes     Sizes
	Filters   []*Filter
	Groups    []*Group
}

func (f *Filter) Kind() EntityKind { return EntityFilter }
func (f *Filter) Key() int         { return f.ID }
func (f *Filter) Title() string    { return f.Name }
func (f *Filter) Order() int       { return f.SortIndex }
func (f *Filter) SortKey() string  { return sortKey(f.Name) }
func (f *Filter) Container() bool  { return true }
func (f *Filter) sealed()          {}

func (f *Filter) Children() []Entity {
	out := make([]Entity, 0, len(f.Filters)+len(f.Groups))
	for _, child := range f.Filters {
		out = append(out, child)
	}
	for _, child := range f.Groups {
		out = append(out, child)
	}
	return out
}

// Group is a set of related series reached through a filter.
type Group struct {
	ID       int
	FilterID int
	Name     string
	Art      string
	Summary  string
	Year     int
	Rating   float64
	Sizes    Sizes
	Series   []*Series
}

func (g *Group) Kind() EntityKind { return EntityGroup }
func (g *Group) Key() int         { return g.ID }
func (g *Group) Title() string    { return g.Name }
func (g *Group) Order() int       { return 0 }
func (g *Group) SortKey() string  { return sortKey(g.Name) }
func (g *Group) Container() bool  { return true }
func (g *Group) sealed()          {}

func (g *Group) Children() []Entity {
	out := make([]Entity, 0, len(g.Series))
	for _, child := range g.Series {
		out = append(out, child)
	}
	return out
}

// Series is a single show.
type Series struct {
	ID       int
	Name     string
	Art      string
	Summary  string
	Year     int
	Rating   float64
	Sizes    Sizes
	Episodes []*Episode
}

func (s *Series) Kind() EntityKind { return EntitySeries }
func (s *Series) Key() int         { return s.ID }
func (s *Series) Title() string    { return s.Name }
func (s *Series) Order() int       { return 0 }
func (s *Series) SortKey() string  { return sortKey(s.Name) }
func (s *Series) Container() bool  { return true }
func (s *Series) sealed()          {}

func (s *Series) Children() []Entity {
	out := make([]Entity, 0)
	for _, t := range s.EpisodeTypes() {
		out = append(out, t)
	}
	return out
}

// EpisodeTypes groups the series episodes by type in first-seen order.
func (s *Series) EpisodeTypes() []*EpisodeTypeGroup {
	index := map[string]*EpisodeTypeGroup{}
	out := make([]*EpisodeTypeGroup, 0)
	for _, ep := range s.Episodes {
		if ep == nil {
			continue
		}
		group, ok := index[ep.Type]
		if !ok {
			group = &EpisodeTypeGroup{SeriesID: s.ID, Type: ep.Type, Name: ep.Type}
			index[ep.Type] = group
			out = append(out, group)
		}
		group.Episodes = append(group.Episodes, ep)
		group.Sizes.Total++
		if len(ep.Files) > 0 {
			group.Sizes.Local++
		}
		if ep.Status() == nav.Watched {
			group.Sizes.Watched++
		}
	}
	return out
}

// EpisodeTypeGroup is the episodes of one type within a series.
type EpisodeTypeGroup struct {
	SeriesID int
	Type     string
	Name     string
	Sizes    Sizes
	Episodes []*Episode
}

func (t *EpisodeTypeGroup) Kind() EntityKind { return EntityEpisodeType }
func (t *EpisodeTypeGroup) Key() int         { return t.SeriesID }
func (t *EpisodeTypeGroup) Order() int       { return 0 }
func (t *EpisodeTypeGroup) SortKey() string  { return sortKey(t.Title()) }
func (t *EpisodeTypeGroup) Container() bool  { return true }
func (t *EpisodeTypeGroup) sealed()          {}

func (t *EpisodeTypeGroup) Title() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Type
}

func (t *EpisodeTypeGroup) Children() []Entity {
	out := make([]Entity, 0, len(t.Episodes))
	for _, ep := range t.Episodes {
		out = append(out, ep)
	}
	return out
}

// Episode is a playable leaf provided by one or more files.
type Episode struct {
	ID           int
	SeriesID     int
	Name         string
	Type         string
	Season       int
	Number       int
	AirDate      string
	Rating       float64
	Summary      string
	Art          string
	ViewCount    int
	ResumeOffset int
	Files        []*File
}

func (e *Episode) Kind() EntityKind   { return EntityEpisode }
func (e *Episode) Key() int           { return e.ID }
func (e *Episode) Title() string      { return e.Name }
func (e *Episode) Order() int         { return 0 }
func (e *Episode) SortKey() string    { return sortKey(e.Name) }
func (e *Episode) Container() bool    { return false }
func (e *Episode) Children() []Entity { return nil }
func (e *Episode) sealed()            {}

// File returns the primary file, nil when the episode has none.
func (e *Episode) File() *File {
	if e == nil {
		return nil
	}
	for _, f := range e.Files {
		if f != nil && f.ID > 0 {
			return f
		}
	}
	return nil
}

// Status classifies the episode by view count and resume position.
func (e *Episode) Status() nav.WatchedStatus {
	switch {
	case e.ViewCount > 0:
		return nav.Watched
	case e.ResumeOffset > 0:
		return nav.PartiallyWatched
	default:
		return nav.Unwatched
	}
}

// Playable reports whether the episode resolves to a file.
func (e *Episode) Playable() bool { return e.File() != nil }

// File is a physical media file.
type File struct {
	ID         int
	EpisodeID  int
	Name       string
	Path       string
	Size       int64
	Duration   int
	Resolution string
}

func (f *File) Kind() EntityKind   { return EntityFile }
func (f *File) Key() int           { return f.ID }
func (f *File) Order() int         { return 0 }
func (f *File) SortKey() string    { return sortKey(f.Title()) }
func (f *File) Container() bool    { return false }
func (f *File) Children() []Entity { return nil }
func (f *File) sealed()            {}

func (f *File) Title() string {
	if f.Name != "" {
		return f.Name
	}
	if f.Path == "" {
		return ""
	}
	parts := strings.FieldsFunc(f.Path, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// SearchResults holds the series matching a query.
type SearchResults struct {
	Query  string
	Series []*Series
}

func (r *SearchResults) Kind() EntityKind { return EntitySearchResults }
func (r *SearchResults) Key() int         { return 0 }
func (r *SearchResults) Title() string    { return r.Query }
func (r *SearchResults) Order() int       { return 0 }
func (r *SearchResults) SortKey() string  { return sortKey(r.Query) }
func (r *SearchResults) Container() bool  { return true }
func (r *SearchResults) sealed()          {}

func (r *SearchResults) Children() []Entity {
	out := make([]Entity, 0, len(r.Series))
	for _, s := range r.Series {
		out = append(out, s)
	}
	return out
}

// CustomItem is a synthetic menu entry such as search or continue.
type CustomItem struct {
	Name        string
	Icon        string
	Target      nav.Action
	SortIndex   int
	Folder      bool
	ContextMenu []nav.MenuAction
	Metadata    map[string]any
}

func (c *CustomItem) Kind() EntityKind   { return EntityCustom }
func (c *CustomItem) Key() int           { return 0 }
func (c *CustomItem) Title() string      { return c.Name }
func (c *CustomItem) Order() int         { return c.SortIndex }
func (c *CustomItem) SortKey() string    { return sortKey(c.Name) }
func (c *CustomItem) Container() bool    { return c.Folder }
func (c *CustomItem) Children() []Entity { return nil }
func (c *CustomItem) sealed()            {}

func sortKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
