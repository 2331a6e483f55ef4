package core

import (
	"fmt"
	"strings"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// ItemAdapter converts entities into display items. It has no side effects.
type ItemAdapter struct{}

// Convert maps every entity variant to a display item. Malformed entities
// yield a KindItemBuild error.
func (ItemAdapter) Convert(entity Entity) (nav.DisplayItem, error) {
	switch e := entity.(type) {
	case nil:
		return nav.DisplayItem{}, itemError("nil entity")
	case *Filter:
		if e == nil || e.ID <= 0 {
			return nav.DisplayItem{}, itemError("filter without id")
		}
		if err := requireName(e); err != nil {
			return nav.DisplayItem{}, err
		}
		return nav.DisplayItem{
			Title:     e.Name,
			Icon:      e.Art,
			Action:    navigate(nav.FilterPath(e.ID)),
			Container: true,
			Metadata:  sizesMetadata(e.Sizes),
		}, nil
	case *Group:
		if e == nil || e.ID <= 0 {
			return nav.DisplayItem{}, itemError("group without id")
		}
		if err := requireName(e); err != nil {
			return nav.DisplayItem{}, err
		}
		meta := sizesMetadata(e.Sizes)
		addDetails(meta, e.Year, e.Rating, e.Summary)
		return nav.DisplayItem{
			Title:     e.Name,
			Icon:      e.Art,
			Action:    navigate(nav.GroupPath(e.ID, e.FilterID)),
			Container: true,
			Metadata:  meta,
		}, nil
	case *Series:
		if e == nil || e.ID <= 0 {
			return nav.DisplayItem{}, itemError("series without id")
		}
		if err := requireName(e); err != nil {
			return nav.DisplayItem{}, err
		}
		meta := sizesMetadata(e.Sizes)
		addDetails(meta, e.Year, e.Rating, e.Summary)
		return nav.DisplayItem{
			Title:     e.Name,
			Icon:      e.Art,
			Action:    navigate(nav.SeriesPath(e.ID)),
			Container: true,
			Metadata:  meta,
		}, nil
	case *EpisodeTypeGroup:
		if e == nil || e.SeriesID <= 0 || strings.TrimSpace(e.Type) == "" {
			return nav.DisplayItem{}, itemError("episode type without series or type")
		}
		meta := sizesMetadata(e.Sizes)
		meta["type"] = e.Type
		return nav.DisplayItem{
			Title:     e.Title(),
			Action:    navigate(nav.EpisodeTypePath(e.SeriesID, e.Type)),
			Container: true,
			Metadata:  meta,
		}, nil
	case *Episode:
		return convertEpisode(e)
	case *File:
		if e == nil || e.ID <= 0 {
			return nav.DisplayItem{}, itemError("file without id")
		}
		if err := requireName(e); err != nil {
			return nav.DisplayItem{}, err
		}
		meta := map[string]any{"size": e.Size}
		if e.Duration > 0 {
			meta["duration"] = e.Duration
		}
		if e.Resolution != "" {
			meta["resolution"] = e.Resolution
		}
		return nav.DisplayItem{
			Title:    e.Title(),
			Action:   nav.Action{Kind: nav.ActionPlay, Path: nav.PlayPath(e.EpisodeID, e.ID)},
			Metadata: meta,
			ContextMenu: []nav.MenuAction{
				{Label: "Play without marking", Path: nav.PlayWithoutMarkingPath(e.EpisodeID, e.ID)},
			},
		}, nil
	case *SearchResults:
		if e == nil || strings.TrimSpace(e.Query) == "" {
			return nav.DisplayItem{}, itemError("search without query")
		}
		return nav.DisplayItem{
			Title:     e.Query,
			Action:    navigate(nav.SearchResultPath(e.Query)),
			Container: true,
			Metadata:  map[string]any{"results": len(e.Series)},
		}, nil
	case *CustomItem:
		if e == nil || strings.TrimSpace(e.Target.Path) == "" {
			return nav.DisplayItem{}, itemError("custom item without target")
		}
		if err := requireName(e); err != nil {
			return nav.DisplayItem{}, err
		}
		meta := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		item := nav.DisplayItem{
			Title:     e.Name,
			Icon:      e.Icon,
			Action:    e.Target,
			Container: e.Folder,
			Metadata:  meta,
		}
		if len(e.ContextMenu) > 0 {
			item.ContextMenu = append([]nav.MenuAction(nil), e.ContextMenu...)
		}
		return item, nil
	default:
		return nav.DisplayItem{}, itemError(fmt.Sprintf("unknown entity %T", entity))
	}
}

func convertEpisode(e *Episode) (nav.DisplayItem, error) {
	if e == nil || e.ID <= 0 {
		return nav.DisplayItem{}, itemError("episode without id")
	}
	if err := requireName(e); err != nil {
		return nav.DisplayItem{}, err
	}
	meta := map[string]any{
		"season":  e.Season,
		"episode": e.Number,
		"watched": e.Status().String(),
	}
	if e.Rating > 0 {
		meta["rating"] = e.Rating
	}
	if e.AirDate != "" {
		meta["aired"] = e.AirDate
	}
	if e.Summary != "" {
		meta["plot"] = e.Summary
	}
	if e.ResumeOffset > 0 {
		meta["resume"] = e.ResumeOffset
	}
	if f := e.File(); f != nil && f.Duration > 0 {
		meta["duration"] = f.Duration
	}

	menu := []nav.MenuAction{
		{Label: "Play without marking", Path: nav.PlayWithoutMarkingPath(e.ID, 0)},
	}
	if e.ResumeOffset > 0 {
		menu = append(menu, nav.MenuAction{Label: "Resume", Path: nav.ResumePath(e.ID, 0)})
	}
	return nav.DisplayItem{
		Title:       e.Name,
		Icon:        e.Art,
		Action:      nav.Action{Kind: nav.ActionPlay, Path: nav.PlayPath(e.ID, 0)},
		Metadata:    meta,
		ContextMenu: menu,
	}, nil
}

func requireName(e Entity) error {
	if strings.TrimSpace(e.Title()) == "" {
		return itemError(fmt.Sprintf("%s without name", e.Kind()))
	}
	return nil
}

func itemError(msg string) error {
	return &Error{Kind: KindItemBuild, Msg: msg}
}

func navigate(path string) nav.Action {
	return nav.Action{Kind: nav.ActionNavigate, Path: path}
}

func sizesMetadata(s Sizes) map[string]any {
	return map[string]any{
		"total":   s.Total,
		"local":   s.Local,
		"watched": s.Watched,
	}
}

func addDetails(meta map[string]any, year int, rating float64, summary string) {
	if year > 0 {
		meta["year"] = year
	}
	if rating > 0 {
		meta["rating"] = rating
	}
	if summary != "" {
		meta["plot"] = summary
	}
}
