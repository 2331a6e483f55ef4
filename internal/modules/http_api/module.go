package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/internal/metrics"
	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Config configures the HTTP API.
type Config struct {
	Listen       string
	RouteTimeout time.Duration
	HistorySize  int
}

// Navigator is the router served over HTTP.
type Navigator interface {
	Route(ctx context.Context, path string) (core.Outcome, error)
	Preflight(ctx context.Context) error
	Paths() []string
}

// Module exposes navigation as JSON over HTTP.
type Module struct {
	log     *zap.Logger
	nav     Navigator
	history ports.SearchHistory
	config  Config
	handler http.Handler
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Reply   *nav.RouteReply `json:"reply,omitempty"`
}

// NewModule builds the API. history may be nil.
func NewModule(log *zap.Logger, navigator Navigator, history ports.SearchHistory, cfg Config) (*Module, error) {
	if navigator == nil {
		return nil, errors.New("navigator required")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = "127.0.0.1:8088"
	}
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = 30 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &Module{log: log, nav: navigator, history: history, config: cfg}
	m.handler = m.routes()
	return m, nil
}

// Handler returns the HTTP handler.
func (m *Module) Handler() http.Handler {
	return m.handler
}

// Run serves until ctx is done.
func (m *Module) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              m.config.Listen,
		Handler:           m.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		m.log.Info("http api listening", zap.String("listen", m.config.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (m *Module) routes() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(m.instrument)

	r.HandleFunc("/healthz", m.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/routes", m.listRoutes).Methods(http.MethodGet)
	api.HandleFunc("/preflight", m.preflight).Methods(http.MethodPost)
	api.HandleFunc("/history", m.listHistory).Methods(http.MethodGet)
	api.HandleFunc("/history", m.clearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/history/{query}", m.removeHistory).Methods(http.MethodDelete)
	api.HandleFunc("/nav", m.route).Methods(http.MethodGet)
	api.HandleFunc("/nav/{path:.*}", m.route).Methods(http.MethodGet)
	return r
}

func (m *Module) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		name := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				name = tpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (m *Module) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (m *Module) listRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"routes": m.nav.Paths()})
}

func (m *Module) route(w http.ResponseWriter, r *http.Request) {
	path := "/" + mux.Vars(r)["path"]
	ctx, cancel := context.WithTimeout(requestContext(r), m.config.RouteTimeout)
	defer cancel()

	out, err := m.nav.Route(ctx, path)
	reply := core.OutcomeResult(path, out).Reply
	if err != nil {
		m.log.Debug("route failed", zap.String("path", path), zap.Error(err))
		writeJSON(w, statusFor(err), errorBody{Code: core.ReplyCode(err), Message: err.Error(), Reply: &reply})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (m *Module) preflight(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(requestContext(r), m.config.RouteTimeout)
	defer cancel()
	if err := m.nav.Preflight(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (m *Module) listHistory(w http.ResponseWriter, r *http.Request) {
	if m.history == nil {
		writeJSON(w, http.StatusOK, core.HistoryResult{Terms: []string{}})
		return
	}
	terms, err := m.history.Recent(r.Context(), m.config.HistorySize)
	if err != nil {
		writeError(w, err)
		return
	}
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, http.StatusOK, core.HistoryResult{Terms: terms})
}

func (m *Module) clearHistory(w http.ResponseWriter, r *http.Request) {
	if m.history != nil {
		if err := m.history.Clear(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) removeHistory(w http.ResponseWriter, r *http.Request) {
	query, err := url.PathUnescape(mux.Vars(r)["query"])
	if err != nil {
		writeError(w, &core.Error{Kind: core.KindParam, Msg: "bad query", Err: err})
		return
	}
	if m.history != nil {
		if err := m.history.Remove(r.Context(), query); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestContext carries a per-request catalog key from the apikey
// header or query parameter.
func requestContext(r *http.Request) context.Context {
	key := r.Header.Get("apikey")
	if key == "" {
		key = r.URL.Query().Get("apikey")
	}
	return nav.WithAPIKey(r.Context(), key)
}

func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindParam:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindConnection:
		return http.StatusBadGateway
	case core.KindCancelled:
		return http.StatusConflict
	case core.KindScreen, core.KindPlayback:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Code: core.ReplyCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
