package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Sort indices of the entries injected into the root menu.
const (
	indexAiringToday = 1
	indexCalendar    = 2
	indexSettings    = 7
	indexServerMenu  = 8
	indexSearch      = 9
	indexContinue    = 99
)

// continueFilterID is the server filter listing in-progress series.
const continueFilterID = 1

func (r *Router) rootMenu(ctx context.Context, req *request) error {
	if r.versionChanged(ctx, req) {
		return nil
	}

	root, err := r.deps.Catalog.FetchFilter(ctx, 0, true)
	if err != nil {
		return fetchError("fetch filters", err)
	}
	req.listing.SetContent(nav.ContentTVShows)

	entities := make([]Entity, 0)
	showUnsort := r.settings.Bool(SettingShowUnsort)
	for _, child := range filterFromRecord(root).Children() {
		if !showUnsort && child.Kind() == EntityFilter && child.Title() == "Unsorted Files" {
			continue
		}
		entities = append(entities, child)
	}
	entities = append(entities, r.injectedEntries()...)

	for _, e := range sortRoot(req.report, entities) {
		r.appendEntity(req, e)
	}
	return nil
}

// sortRoot orders the root entries, falling back to server order when the
// sort fails.
func sortRoot(report *Reporter, entities []Entity) []Entity {
	sorted, err := SortEntities(entities)
	if err != nil {
		report.Log(PriorityHigh, err)
	}
	return sorted
}

// versionChanged stores a newer installed version and requests a restart.
func (r *Router) versionChanged(ctx context.Context, req *request) bool {
	installed := canonicalVersion(r.deps.Version)
	if !semver.IsValid(installed) {
		return false
	}
	last := canonicalVersion(r.settings.String(SettingVersion))
	if semver.Compare(installed, last) <= 0 {
		return false
	}

	r.logger.Info("version changed", zap.String("from", last), zap.String("to", installed))
	_ = req.listing.Discard()
	if r.deps.Host != nil {
		text := fmt.Sprintf("Updated to %s. The menu will be reloaded.", r.deps.Version)
		if err := r.deps.Host.ShowInformation(ctx, "What's new", text); err != nil {
			r.logger.Warn("show information", zap.Error(err))
		}
	}
	if r.deps.Settings != nil {
		if err := r.deps.Settings.Set(SettingVersion, r.deps.Version); err != nil {
			req.report.Log(PriorityHigh, WrapError(KindRuntime, "store version", err))
		}
	}
	req.outcome.Restart = true
	return true
}

func canonicalVersion(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

func (r *Router) injectedEntries() []Entity {
	out := make([]Entity, 0)
	if r.settings.Bool(SettingShowAiringToday) {
		out = append(out, &CustomItem{
			Name:      "Airing Today",
			Icon:      "airing.png",
			Target:    navigate(nav.AiringTodayPath()),
			SortIndex: indexAiringToday,
			Folder:    true,
		})
	}
	if r.settings.Bool(SettingShowCalendar) {
		out = append(out, &CustomItem{
			Name:      "Calendar",
			Icon:      "calendar.png",
			Target:    scriptAction(nav.CalendarAction()),
			SortIndex: indexCalendar,
		})
	}
	if r.settings.Bool(SettingShowSettings) {
		out = append(out, &CustomItem{
			Name:      "Settings",
			Icon:      "settings.png",
			Target:    scriptAction(nav.SettingsAction()),
			SortIndex: indexSettings,
		})
	}
	if r.settings.Bool(SettingShowShoko) {
		out = append(out, &CustomItem{
			Name:      "Shoko Menu",
			Icon:      "shoko.png",
			Target:    scriptAction(nav.ServerMenuAction()),
			SortIndex: indexServerMenu,
		})
	}
	if r.settings.Bool(SettingShowSearch) {
		out = append(out, &CustomItem{
			Name:      "Search",
			Icon:      "search.png",
			Target:    navigate(nav.SearchPath()),
			SortIndex: indexSearch,
			Folder:    true,
		})
	}
	if r.settings.Bool(SettingOnePunchMen) {
		if key := r.settings.String(SettingAPIKey); key != "" {
			out = append(out, &CustomItem{
				Name:      "Continue Watching",
				Icon:      "continue.png",
				Target:    navigate(nav.TVShowsPath(key)),
				SortIndex: indexContinue,
				Folder:    true,
			})
		}
	}
	return out
}

func (r *Router) filterMenu(ctx context.Context, req *request) error {
	id := req.params.Int("id")
	rec, err := r.deps.Catalog.FetchFilter(ctx, id, true)
	if err != nil {
		return fetchError(fmt.Sprintf("fetch filter %d", id), err)
	}
	r.containerListing(req, filterFromRecord(rec), EntityGroup)
	return nil
}

func (r *Router) groupMenu(ctx context.Context, req *request) error {
	id, filterID := req.params.Int("id"), req.params.Int("filter")
	rec, err := r.deps.Catalog.FetchGroup(ctx, id, filterID, true)
	if err != nil {
		return fetchError(fmt.Sprintf("fetch group %d", id), err)
	}
	group := groupFromRecord(rec)
	group.FilterID = filterID
	r.containerListing(req, group, EntitySeries)
	return nil
}

// containerListing lists the children of a filter or group.
func (r *Router) containerListing(req *request, parent Entity, childKind EntityKind) {
	req.listing.SetContent(nav.ContentTVShows)
	req.listing.SetCached()
	r.sorts.AddSortMethods(req.listing, childKind)
	for _, child := range parent.Children() {
		r.appendEntity(req, child)
	}
	r.sorts.ApplyDefault(req.listing, childKind)
}

func (r *Router) seriesMenu(ctx context.Context, req *request) error {
	id := req.params.Int("id")
	rec, err := r.deps.Catalog.FetchSeries(ctx, id, true)
	if err != nil {
		return fetchError(fmt.Sprintf("fetch series %d", id), err)
	}
	series := seriesFromRecord(rec)
	types := series.EpisodeTypes()
	switch len(types) {
	case 0:
		return &Error{Kind: KindScreen, Msg: fmt.Sprintf("series %q has no episodes", series.Name)}
	case 1:
		r.episodeListing(req, types[0])
	default:
		req.listing.SetContent(nav.ContentSeasons)
		req.listing.SetCached()
		r.sorts.AddSortMethods(req.listing, EntityEpisodeType)
		for _, t := range types {
			r.appendEntity(req, t)
		}
	}
	return nil
}

func (r *Router) episodeTypeMenu(ctx context.Context, req *request) error {
	id, typ := req.params.Int("id"), req.params.String("type")
	rec, err := r.deps.Catalog.FetchEpisodeType(ctx, id, typ, true)
	if err != nil {
		return fetchError(fmt.Sprintf("fetch %s episodes of series %d", typ, id), err)
	}
	group := episodeTypeFromRecord(rec)
	if group.SeriesID == 0 {
		group.SeriesID = id
	}
	if group.Type == "" {
		group.Type = typ
	}
	r.episodeListing(req, group)
	return nil
}

// episodeListing lists episodes with isolated conversion, then adds the
// continue entry and the select hint.
func (r *Router) episodeListing(req *request, group *EpisodeTypeGroup) {
	req.listing.SetContent(nav.ContentEpisodes)
	req.listing.SetCached()
	r.sorts.AddSortMethods(req.listing, EntityEpisode)

	shown := make([]Trackable, 0, len(group.Episodes))
	for _, ep := range group.Episodes {
		if !ep.Playable() {
			continue
		}
		item, err := r.adapter.Convert(ep)
		if err != nil {
			r.itemError(req, err)
			continue
		}
		req.listing.Append(item, false)
		shown = append(shown, ep)
	}

	index := r.tracker.FirstUnwatched(shown)
	if r.settings.Bool(SettingShowContinue) {
		r.insertContinue(req, group, shown, index)
	}
	if r.settings.Bool(SettingSelectUnwatched) {
		req.listing.SetSelectIndex(index)
	}
	r.sorts.ApplyDefault(req.listing, EntityEpisode)
}

func (r *Router) insertContinue(req *request, group *EpisodeTypeGroup, shown []Trackable, index int) {
	name := "Continue"
	if r.settings.Bool(SettingReplaceContinue) {
		// Server sizes win; both numbers come from the same source.
		watched, total := r.tracker.Counts(shown)
		size := group.Sizes.Total
		if r.settings.Bool(SettingLocalOnly) {
			size = group.Sizes.Local
		}
		if size > 0 {
			watched, total = min(group.Sizes.Watched, size), size
		}
		name = fmt.Sprintf("[ %s: %d/%d ]", group.Title(), watched, total)
	}
	item, err := r.adapter.Convert(&CustomItem{
		Name:     name,
		Icon:     "continue.png",
		Target:   scriptAction(nav.MoveToIndexAction(index)),
		Metadata: map[string]any{"season": 0, "episode": 0},
	})
	if err != nil {
		r.itemError(req, err)
		return
	}
	req.listing.Insert(0, item, false)
}

func (r *Router) unsortedMenu(ctx context.Context, req *request) error {
	files, err := r.deps.Catalog.FetchUnsortedFiles(ctx)
	if err != nil {
		return fetchError("fetch unsorted files", err)
	}
	req.listing.SetContent(nav.ContentEpisodes)
	r.sorts.AddSortMethods(req.listing, EntityFile)
	for _, f := range files {
		r.appendEntity(req, fileFromRecord(f))
	}
	return nil
}

func (r *Router) searchMenu(ctx context.Context, req *request) error {
	req.listing.SetContent(nav.ContentVideos)
	clearHistory := nav.MenuAction{Label: "Clear search history", Path: nav.ScriptPath(nav.ClearSearchTermsAction())}
	r.appendEntity(req, &CustomItem{
		Name:        "New search",
		Icon:        "search.png",
		Target:      scriptAction(nav.NewSearchAction(true)),
		ContextMenu: []nav.MenuAction{clearHistory},
	})
	r.appendEntity(req, &CustomItem{
		Name:        "Quick search",
		Icon:        "search.png",
		Target:      scriptAction(nav.NewSearchAction(false)),
		ContextMenu: []nav.MenuAction{clearHistory},
	})
	if r.deps.History == nil {
		return nil
	}

	terms, err := r.deps.History.Recent(ctx, r.settings.Int(SettingHistorySize, 20))
	if err != nil {
		req.report.Log(PriorityHigh, WrapError(KindRuntime, "read search history", err))
		return nil
	}
	for _, term := range terms {
		r.appendEntity(req, &CustomItem{
			Name:   term,
			Icon:   "search.png",
			Target: navigate(nav.SearchResultPath(term)),
			Folder: true,
			ContextMenu: []nav.MenuAction{
				{Label: "Remove from history", Path: nav.ScriptPath(nav.RemoveSearchTermAction(term))},
				clearHistory,
			},
		})
	}
	return nil
}

func (r *Router) searchResults(ctx context.Context, req *request) error {
	query := req.params.String("query")
	rec, err := r.deps.Catalog.Search(ctx, query,
		r.settings.Int(SettingMaxLimitTag, 20),
		r.settings.Int(SettingMaxLimit, 100),
	)
	if err != nil {
		return fetchError(fmt.Sprintf("search %q", query), err)
	}
	results := searchFromRecord(rec)
	if len(results.Series) == 0 {
		req.report.Message("No results", fmt.Sprintf("Nothing found for %q", query))
		return &Error{Kind: KindScreen, Msg: fmt.Sprintf("no results for %q", query)}
	}
	if r.deps.History != nil {
		if err := r.deps.History.Add(ctx, query); err != nil {
			req.report.Log(PriorityMedium, WrapError(KindRuntime, "save search", err))
		}
	}
	req.listing.SetContent(nav.ContentTVShows)
	r.sorts.AddSortMethods(req.listing, EntitySearchResults)
	for _, s := range results.Series {
		r.appendEntity(req, s)
	}
	return nil
}

func (r *Router) airingToday(ctx context.Context, req *request) error {
	if r.deps.Airing == nil {
		return &Error{Kind: KindScreen, Msg: "no airing feed configured"}
	}
	entries, err := r.deps.Airing.Today(ctx)
	if err != nil {
		return fetchError("fetch airing feed", err)
	}
	req.listing.SetContent(nav.ContentVideos)
	for _, entry := range entries {
		name := entry.Title
		if entry.Episode != "" {
			name = fmt.Sprintf("%s - %s", entry.Title, entry.Episode)
		}
		r.appendEntity(req, &CustomItem{
			Name:     name,
			Target:   navigate(nav.SearchResultPath(entry.Title)),
			Folder:   true,
			Metadata: map[string]any{"link": entry.Link},
		})
	}
	return nil
}

func (r *Router) tvShows(ctx context.Context, req *request) error {
	ctx = nav.WithAPIKey(ctx, req.params.String("apikey"))
	rec, err := r.deps.Catalog.FetchFilter(ctx, continueFilterID, true)
	if err != nil {
		return fetchError("fetch continue watching", err)
	}
	r.containerListing(req, filterFromRecord(rec), EntityGroup)
	return nil
}

func (r *Router) script(ctx context.Context, req *request) error {
	if err := req.listing.Discard(); err != nil {
		return err
	}
	if r.deps.Host == nil {
		req.outcome.Script = req.params.String("url")
		return nil
	}
	if err := r.deps.Host.RunScript(ctx, req.params.String("url")); err != nil {
		return WrapError(KindRuntime, "run script", err)
	}
	return nil
}

func (r *Router) playHandler(markWatched bool, resume bool) handlerFunc {
	return func(ctx context.Context, req *request) error {
		if err := req.listing.Discard(); err != nil {
			return err
		}
		played, err := r.play.Play(ctx, nav.PlayRequest{
			EpisodeID:   req.params.Int("ep"),
			FileID:      req.params.Int("file"),
			MarkWatched: markWatched,
			Resume:      resume,
		})
		if err != nil {
			return err
		}
		req.outcome.Played = &played
		return nil
	}
}

// appendEntity converts e and appends it; conversion failures skip the item.
func (r *Router) appendEntity(req *request, e Entity) {
	item, err := r.adapter.Convert(e)
	if err != nil {
		r.itemError(req, err)
		return
	}
	req.listing.Append(item, item.Container)
}

func scriptAction(action string) nav.Action {
	return nav.Action{Kind: nav.ActionScript, Path: nav.ScriptPath(action)}
}

// fetchError keeps connection and auth kinds from the catalog and turns
// anything else into a screen failure.
func fetchError(what string, err error) error {
	kind := KindOf(err)
	if kind == KindRuntime {
		kind = KindScreen
	}
	return WrapError(kind, what, err)
}
