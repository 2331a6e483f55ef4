package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Deps wires the router to its collaborators. Catalog, Settings and Player
// are required; the rest may be nil.
type Deps struct {
	Catalog  ports.Catalog
	Settings ports.Settings
	Renderer ports.Renderer
	Host     ports.Host
	Player   ports.Player
	Prompter ports.Prompter
	History  ports.SearchHistory
	Airing   ports.AiringFeed
	Metrics  ports.Metrics
	Logger   *zap.Logger
	// Version is the installed front-end version compared on the root menu.
	Version string
}

// Outcome is the result of one route invocation.
type Outcome struct {
	Route    string
	Screen   nav.Screen
	Rendered bool
	Played   *nav.PlayRequest
	Restart  bool
	// Script is a host action left for the caller when no Host is wired.
	Script   string
	Messages []nav.Message
}

type handlerFunc func(ctx context.Context, req *request) error

type route struct {
	name    string
	pattern pattern
	handler handlerFunc
}

// request is the state a handler works on.
type request struct {
	path    string
	params  params
	listing *Listing
	report  *Reporter
	outcome *Outcome
}

// Router maps navigation paths to handlers and owns the listing of each
// invocation. Invocations are serialized.
type Router struct {
	deps     Deps
	logger   *zap.Logger
	settings settingsView
	adapter  ItemAdapter
	sorts    SortPolicy
	tracker  WatchedStateTracker
	play     PlayResolver
	routes   []route

	mu     sync.Mutex
	active bool
}

// NewRouter builds a router with the static route table.
func NewRouter(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		deps:     deps,
		logger:   logger,
		settings: settingsView{deps.Settings},
		sorts:    SortPolicy{Settings: deps.Settings},
		play: PlayResolver{
			Catalog:  deps.Catalog,
			Settings: deps.Settings,
			Prompter: deps.Prompter,
			Player:   deps.Player,
			Metrics:  deps.Metrics,
			Logger:   logger,
		},
	}
	r.routes = []route{
		r.handle("root", "/", r.rootMenu),
		r.handle("unsorted", "/menu/filter/unsorted", r.unsortedMenu),
		r.handle("filter", "/menu/filter/<id:int>", r.filterMenu),
		r.handle("group", "/menu/group/<id:int>/filterby/<filter:int>", r.groupMenu),
		r.handle("series", "/menu/series/<id:int>", r.seriesMenu),
		r.handle("episode_type", "/menu/series/<id:int>/type/<type:str>", r.episodeTypeMenu),
		r.handle("search", "/menu/search", r.searchMenu),
		r.handle("search_results", "/menu/search/<query:path>", r.searchResults),
		r.handle("airing_today", "/menu/airing_today", r.airingToday),
		r.handle("tvshows", "/tvshows/<apikey:str>", r.tvShows),
		r.handle("play", "/episode/<ep:int>/file/<file:int>/play", r.playHandler(true, false)),
		r.handle("play_without_marking", "/episode/<ep:int>/file/<file:int>/play_without_marking", r.playHandler(false, false)),
		r.handle("resume", "/episode/<ep:int>/file/<file:int>/resume", r.playHandler(true, true)),
		r.handle("script", "/script/<url:path>", r.script),
	}
	return r
}

func (r *Router) handle(name, raw string, h handlerFunc) route {
	return route{name: name, pattern: compilePattern(raw), handler: h}
}

// Active reports whether a listing is currently open.
func (r *Router) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Route runs the handler for path. The returned error is the failure that
// forced the screen to fail, if any; messages have already been flushed.
func (r *Router) Route(ctx context.Context, path string) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	req := &request{
		path:    path,
		listing: NewListing(r.logger),
		report:  NewReporter(r.logger),
		outcome: &Outcome{},
	}
	r.active = true
	defer func() { r.active = false }()

	rt, p, err := r.match(path)
	if err == nil {
		req.params = p
		req.outcome.Route = rt.name
		r.logger.Debug("route", zap.String("route", rt.name), zap.String("path", path))
		err = r.invoke(ctx, rt, req)
	}
	err = r.complete(ctx, req, err)

	messages, flushErr := req.report.Flush(ctx, r.deps.Host)
	if flushErr != nil {
		r.logger.Warn("deliver messages", zap.Error(flushErr))
	}
	req.outcome.Messages = messages

	if r.deps.Metrics != nil {
		name := req.outcome.Route
		if name == "" {
			name = "unmatched"
		}
		r.deps.Metrics.ObserveRoute(name, err == nil, time.Since(start).Seconds())
	}
	return *req.outcome, err
}

func (r *Router) match(path string) (route, params, error) {
	parts, err := normalizePath(path)
	if err != nil {
		return route{}, params{}, err
	}
	for _, rt := range r.routes {
		p, ok, err := rt.pattern.match(parts)
		if !ok {
			continue
		}
		if err != nil {
			return rt, params{}, err
		}
		return rt, p, nil
	}
	for _, rt := range r.routes {
		if rt.pattern.prefixOf(parts) {
			return route{}, params{}, &Error{
				Kind: KindParam,
				Msg:  fmt.Sprintf("wrong arguments for %s: %s", rt.pattern.raw, path),
			}
		}
	}
	return route{}, params{}, &Error{Kind: KindNotFound, Msg: "no route for " + path}
}

func (r *Router) invoke(ctx context.Context, rt route, req *request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic",
				zap.String("route", rt.name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			err = &Error{Kind: KindRuntime, Msg: "unexpected failure in " + rt.name, Err: fmt.Errorf("%v", rec)}
		}
	}()
	return rt.handler(ctx, req)
}

// complete closes the listing, renders on success and applies post-render
// hints. It returns the error that failed the invocation, if any.
func (r *Router) complete(ctx context.Context, req *request, err error) error {
	out := req.outcome
	if err != nil {
		if !req.listing.Closed() {
			_ = req.listing.Discard()
		}
		out.Screen = req.listing.failed()
		req.report.Fail(err)
		return err
	}
	if req.listing.Closed() {
		out.Screen = req.listing.failed()
		return nil
	}

	screen, ferr := req.listing.Finish()
	if ferr != nil {
		req.report.Fail(ferr)
		return ferr
	}
	out.Screen = screen
	if r.deps.Renderer == nil {
		return nil
	}
	if rerr := r.deps.Renderer.Render(ctx, screen); rerr != nil {
		rerr = WrapError(KindScreen, "render screen", rerr)
		out.Screen.Success = false
		req.report.Fail(rerr)
		return rerr
	}
	out.Rendered = true
	r.applyHints(ctx, screen)
	return nil
}

func (r *Router) applyHints(ctx context.Context, screen nav.Screen) {
	if r.deps.Host == nil {
		return
	}
	if screen.DefaultSort != "" {
		if err := r.deps.Host.ApplySort(ctx, screen.DefaultSort); err != nil {
			r.logger.Warn("apply sort hint", zap.Error(err))
		}
	}
	if screen.SelectIndex >= 0 {
		if err := r.deps.Host.MoveToIndex(ctx, screen.SelectIndex); err != nil {
			r.logger.Warn("move to index hint", zap.Error(err))
		}
	}
}

// Preflight checks that the catalog server is ready and accepts our login.
func (r *Router) Preflight(ctx context.Context) error {
	ready, err := r.deps.Catalog.ServerStatus(ctx)
	if err != nil {
		if IsKind(err, KindAuth) {
			return err
		}
		return WrapError(KindConnection, "reach catalog server", err)
	}
	if !ready {
		return &Error{Kind: KindConnection, Msg: "server not ready"}
	}
	ok, err := r.deps.Catalog.Auth(ctx)
	if err != nil {
		if IsKind(err, KindConnection) {
			return err
		}
		return WrapError(KindAuth, "authenticate", err)
	}
	if !ok {
		return &Error{Kind: KindAuth, Msg: "login rejected"}
	}
	return nil
}

// Paths lists the route patterns in match order.
func (r *Router) Paths() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.pattern.raw)
	}
	return out
}

func (r *Router) itemError(req *request, err error) {
	req.report.Item(err)
	if r.deps.Metrics != nil {
		r.deps.Metrics.ItemError(string(KindOf(err)))
	}
}
