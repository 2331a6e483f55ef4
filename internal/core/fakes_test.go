package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

type fakeCatalog struct {
	filters     map[int]ports.FilterRecord
	groups      map[int]ports.GroupRecord
	series      map[int]ports.SeriesRecord
	episodes    map[int]ports.EpisodeRecord
	unsorted    []ports.FileRecord
	search      ports.SearchRecord
	status      bool
	auth        bool
	err         error
	episodeHits int
	lastAPIKey  string
	lastSearch  [3]any
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		filters:  map[int]ports.FilterRecord{},
		groups:   map[int]ports.GroupRecord{},
		series:   map[int]ports.SeriesRecord{},
		episodes: map[int]ports.EpisodeRecord{},
		status:   true,
		auth:     true,
	}
}

func (f *fakeCatalog) FetchFilter(ctx context.Context, id int, withChildren bool) (ports.FilterRecord, error) {
	if key, ok := nav.APIKeyFrom(ctx); ok {
		f.lastAPIKey = key
	}
	if f.err != nil {
		return ports.FilterRecord{}, f.err
	}
	rec, ok := f.filters[id]
	if !ok {
		return ports.FilterRecord{}, fmt.Errorf("filter %d missing", id)
	}
	return rec, nil
}

func (f *fakeCatalog) FetchGroup(ctx context.Context, id int, filterID int, withChildren bool) (ports.GroupRecord, error) {
	if f.err != nil {
		return ports.GroupRecord{}, f.err
	}
	rec, ok := f.groups[id]
	if !ok {
		return ports.GroupRecord{}, fmt.Errorf("group %d missing", id)
	}
	return rec, nil
}

func (f *fakeCatalog) FetchSeries(ctx context.Context, id int, withChildren bool) (ports.SeriesRecord, error) {
	if f.err != nil {
		return ports.SeriesRecord{}, f.err
	}
	rec, ok := f.series[id]
	if !ok {
		return ports.SeriesRecord{}, fmt.Errorf("series %d missing", id)
	}
	return rec, nil
}

func (f *fakeCatalog) FetchEpisodeType(ctx context.Context, seriesID int, episodeType string, withChildren bool) (ports.EpisodeTypeRecord, error) {
	s, err := f.FetchSeries(ctx, seriesID, withChildren)
	if err != nil {
		return ports.EpisodeTypeRecord{}, err
	}
	out := ports.EpisodeTypeRecord{SeriesID: seriesID, Type: episodeType, Name: episodeType}
	for _, ep := range s.Episodes {
		if ep.Type == episodeType {
			out.Episodes = append(out.Episodes, ep)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchEpisode(ctx context.Context, id int) (ports.EpisodeRecord, error) {
	f.episodeHits++
	if f.err != nil {
		return ports.EpisodeRecord{}, f.err
	}
	rec, ok := f.episodes[id]
	if !ok {
		return ports.EpisodeRecord{}, fmt.Errorf("episode %d missing", id)
	}
	return rec, nil
}

func (f *fakeCatalog) FetchUnsortedFiles(ctx context.Context) ([]ports.FileRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.unsorted, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string, tagLimit int, limit int) (ports.SearchRecord, error) {
	f.lastSearch = [3]any{query, tagLimit, limit}
	if f.err != nil {
		return ports.SearchRecord{}, f.err
	}
	rec := f.search
	rec.Query = query
	return rec, nil
}

func (f *fakeCatalog) Auth(ctx context.Context) (bool, error) { return f.auth, nil }

func (f *fakeCatalog) ServerStatus(ctx context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.status, nil
}

type memSettings map[string]string

func (m memSettings) Get(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return DefaultSettings()[key]
}

func (m memSettings) Set(key string, value string) error {
	m[key] = value
	return nil
}

type recordingRenderer struct {
	screens []nav.Screen
	err     error
}

func (r *recordingRenderer) Render(ctx context.Context, screen nav.Screen) error {
	r.screens = append(r.screens, screen)
	return r.err
}

type recordingHost struct {
	scripts  []string
	moves    []int
	sorts    []string
	infos    []string
	notified []nav.Message
}

func (h *recordingHost) RunScript(ctx context.Context, action string) error {
	h.scripts = append(h.scripts, action)
	return nil
}

func (h *recordingHost) MoveToIndex(ctx context.Context, index int) error {
	h.moves = append(h.moves, index)
	return nil
}

func (h *recordingHost) ApplySort(ctx context.Context, method string) error {
	h.sorts = append(h.sorts, method)
	return nil
}

func (h *recordingHost) ShowInformation(ctx context.Context, title string, text string) error {
	h.infos = append(h.infos, title+": "+text)
	return nil
}

func (h *recordingHost) Notify(ctx context.Context, msg nav.Message) error {
	h.notified = append(h.notified, msg)
	return nil
}

type recordingPlayer struct {
	played []nav.PlayRequest
	err    error
}

func (p *recordingPlayer) Play(ctx context.Context, req nav.PlayRequest) error {
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, req)
	return nil
}

type stubPrompter struct {
	choice  int
	cancel  bool
	calls   int
	offered []ports.FileChoice
}

func (p *stubPrompter) ChooseFile(ctx context.Context, choices []ports.FileChoice) (int, bool, error) {
	p.calls++
	p.offered = choices
	if p.cancel {
		return 0, false, nil
	}
	return p.choice, true, nil
}

type memHistory struct {
	terms []string
	err   error
}

func (h *memHistory) Recent(ctx context.Context, limit int) ([]string, error) {
	if h.err != nil {
		return nil, h.err
	}
	if limit < len(h.terms) {
		return h.terms[:limit], nil
	}
	return h.terms, nil
}

func (h *memHistory) Add(ctx context.Context, query string) error {
	h.terms = append([]string{query}, h.terms...)
	return nil
}

func (h *memHistory) Remove(ctx context.Context, query string) error { return nil }

func (h *memHistory) Clear(ctx context.Context) error {
	h.terms = nil
	return nil
}

type stubAiring struct {
	entries []ports.AiringEntry
}

func (a stubAiring) Today(ctx context.Context) ([]ports.AiringEntry, error) {
	return a.entries, nil
}

type countingMetrics struct {
	routes     map[string]int
	itemErrors int
	plays      int
}

func (m *countingMetrics) ObserveRoute(route string, ok bool, seconds float64) {
	if m.routes == nil {
		m.routes = map[string]int{}
	}
	m.routes[route]++
}

func (m *countingMetrics) ItemError(kind string) { m.itemErrors++ }

func (m *countingMetrics) PlayDispatched(resume bool) { m.plays++ }

var errUnreachable = errors.New("dial tcp: connection refused")

type fixture struct {
	catalog  *fakeCatalog
	settings memSettings
	renderer *recordingRenderer
	host     *recordingHost
	player   *recordingPlayer
	prompter *stubPrompter
	history  *memHistory
	metrics  *countingMetrics
	router   *Router
}

func newFixture() *fixture {
	f := &fixture{
		catalog:  newFakeCatalog(),
		settings: memSettings{},
		renderer: &recordingRenderer{},
		host:     &recordingHost{},
		player:   &recordingPlayer{},
		prompter: &stubPrompter{},
		history:  &memHistory{},
		metrics:  &countingMetrics{},
	}
	f.router = NewRouter(Deps{
		Catalog:  f.catalog,
		Settings: f.settings,
		Renderer: f.renderer,
		Host:     f.host,
		Player:   f.player,
		Prompter: f.prompter,
		History:  f.history,
		Airing:   stubAiring{entries: []ports.AiringEntry{{Title: "Frieren", Episode: "12"}}},
		Metrics:  f.metrics,
	})
	return f
}

func titles(items []nav.DisplayItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func episodes(n int) []ports.EpisodeRecord {
	out := make([]ports.EpisodeRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, ports.EpisodeRecord{
			ID:     100 + i,
			Name:   fmt.Sprintf("Episode %d", i),
			Type:   "Episode",
			Number: i,
			Files:  []ports.FileRecord{{ID: 1000 + i, Name: fmt.Sprintf("ep%02d.mkv", i)}},
		})
	}
	return out
}
