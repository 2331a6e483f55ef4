package shoko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/internal/metrics"
	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Config configures the catalog client.
type Config struct {
	BaseURL  string
	APIKey   string
	User     string
	Password string
	Device   string
	Timeout  time.Duration
	RetryMax int
}

// Client talks to a Shoko server over its v2 JSON API.
type Client struct {
	config Config
	http   *retryablehttp.Client
	logger *zap.Logger

	mu     sync.Mutex
	apiKey string
}

var _ ports.Catalog = (*Client)(nil)

// New builds a client. The base URL is required.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("shoko base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("shoko base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Device == "" {
		cfg.Device = "shoko_nav"
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient.Timeout = cfg.Timeout
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.Logger = leveledLogger{logger.Sugar()}

	return &Client{config: cfg, http: httpClient, logger: logger, apiKey: cfg.APIKey}, nil
}

// SetTransport replaces the HTTP transport.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.HTTPClient.Transport = rt
}

func (c *Client) FetchFilter(ctx context.Context, id int, withChildren bool) (ports.FilterRecord, error) {
	params := url.Values{}
	if id > 0 {
		params.Set("id", strconv.Itoa(id))
	}
	params.Set("level", level(withChildren))
	var out apiFilter
	if err := c.doJSON(ctx, http.MethodGet, "/api/filter", params, nil, &out); err != nil {
		return ports.FilterRecord{}, err
	}
	return out.record(), nil
}

func (c *Client) FetchGroup(ctx context.Context, id int, filterID int, withChildren bool) (ports.GroupRecord, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	params.Set("filter", strconv.Itoa(filterID))
	params.Set("level", level(withChildren))
	var out apiGroup
	if err := c.doJSON(ctx, http.MethodGet, "/api/group", params, nil, &out); err != nil {
		return ports.GroupRecord{}, err
	}
	return out.record(), nil
}

func (c *Client) FetchSeries(ctx context.Context, id int, withChildren bool) (ports.SeriesRecord, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	params.Set("level", level(withChildren))
	var out apiSeries
	if err := c.doJSON(ctx, http.MethodGet, "/api/serie", params, nil, &out); err != nil {
		return ports.SeriesRecord{}, err
	}
	return out.record(), nil
}

// FetchEpisodeType returns the episodes of one type. The server has no
// endpoint for this, so the series is fetched and filtered.
func (c *Client) FetchEpisodeType(ctx context.Context, seriesID int, episodeType string, withChildren bool) (ports.EpisodeTypeRecord, error) {
	series, err := c.FetchSeries(ctx, seriesID, withChildren)
	if err != nil {
		return ports.EpisodeTypeRecord{}, err
	}
	out := ports.EpisodeTypeRecord{SeriesID: seriesID, Type: episodeType, Name: episodeType}
	for _, ep := range series.Episodes {
		if ep.Type != episodeType {
			continue
		}
		out.Episodes = append(out.Episodes, ep)
		out.Sizes.Total++
		if len(ep.Files) > 0 {
			out.Sizes.Local++
		}
		if ep.ViewCount > 0 {
			out.Sizes.Watched++
		}
	}
	return out, nil
}

func (c *Client) FetchEpisode(ctx context.Context, id int) (ports.EpisodeRecord, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	params.Set("level", "1")
	var out apiEpisode
	if err := c.doJSON(ctx, http.MethodGet, "/api/ep", params, nil, &out); err != nil {
		return ports.EpisodeRecord{}, err
	}
	return out.record(), nil
}

func (c *Client) FetchUnsortedFiles(ctx context.Context) ([]ports.FileRecord, error) {
	var out []apiFile
	if err := c.doJSON(ctx, http.MethodGet, "/api/file/unsort", nil, nil, &out); err != nil {
		return nil, err
	}
	files := make([]ports.FileRecord, 0, len(out))
	for _, f := range out {
		files = append(files, f.record())
	}
	return files, nil
}

func (c *Client) Search(ctx context.Context, query string, tagLimit int, limit int) (ports.SearchRecord, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("limit_tag", strconv.Itoa(tagLimit))
	params.Set("tags", "2")
	params.Set("fuzzy", "1")
	params.Set("level", "1")
	var out apiFilter
	if err := c.doJSON(ctx, http.MethodGet, "/api/search", params, nil, &out); err != nil {
		return ports.SearchRecord{}, err
	}
	rec := ports.SearchRecord{Query: query}
	seen := map[int]bool{}
	for _, g := range out.Groups {
		for _, s := range g.Series {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			rec.Series = append(rec.Series, s.record())
		}
	}
	return rec, nil
}

// Auth logs in when no api key is configured and checks the key.
func (c *Client) Auth(ctx context.Context) (bool, error) {
	if c.key(ctx) == "" {
		if c.config.User == "" {
			return false, nil
		}
		var reply apiAuthReply
		body := apiAuthRequest{User: c.config.User, Pass: c.config.Password, Device: c.config.Device}
		if err := c.doJSON(ctx, http.MethodPost, "/api/auth", nil, body, &reply); err != nil {
			if core.IsKind(err, core.KindAuth) {
				return false, nil
			}
			return false, err
		}
		if reply.APIKey == "" {
			return false, nil
		}
		c.mu.Lock()
		c.apiKey = reply.APIKey
		c.mu.Unlock()
	}

	var me map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/myid/get", nil, nil, &me); err != nil {
		if core.IsKind(err, core.KindAuth) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// APIKey returns the key in use, obtained from config or login.
func (c *Client) APIKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiKey
}

func (c *Client) ServerStatus(ctx context.Context) (bool, error) {
	var status apiStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/init/status", nil, nil, &status); err != nil {
		return false, err
	}
	if !status.ServerStarted || status.StartupFailed {
		c.logger.Info("server not ready", zap.String("state", status.StartupState))
		return false, nil
	}
	return true, nil
}

// StreamURL returns an absolute URL the player can open for fileID.
func (c *Client) StreamURL(ctx context.Context, fileID int) (string, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(fileID))
	var f apiFile
	if err := c.doJSON(ctx, http.MethodGet, "/api/file", params, nil, &f); err != nil {
		return "", err
	}
	if f.URL == "" {
		return "", fmt.Errorf("file %d has no stream url", fileID)
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return "", fmt.Errorf("file %d stream url: %w", fileID, err)
	}
	if u.IsAbs() {
		return f.URL, nil
	}
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// Scrobble marks an episode watched or unwatched on the server.
func (c *Client) Scrobble(ctx context.Context, episodeID int, watched bool) error {
	endpoint := "/api/ep/unwatch"
	if watched {
		endpoint = "/api/ep/watch"
	}
	params := url.Values{}
	params.Set("id", strconv.Itoa(episodeID))
	return c.doJSON(ctx, http.MethodGet, endpoint, params, nil, nil)
}

func (c *Client) key(ctx context.Context) string {
	if key, ok := nav.APIKeyFrom(ctx); ok {
		return key
	}
	return c.APIKey()
}

func (c *Client) doJSON(ctx context.Context, method string, endpoint string, params url.Values, body any, out any) error {
	endpointURL := c.config.BaseURL + endpoint
	if len(params) > 0 {
		endpointURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpointURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if key := c.key(ctx); key != "" {
		req.Header.Set("apikey", key)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveCatalog(endpoint, 0, time.Since(start).Seconds())
		return core.WrapError(core.KindConnection, fmt.Sprintf("%s %s", method, endpoint), err)
	}
	defer resp.Body.Close()
	metrics.ObserveCatalog(endpoint, resp.StatusCode, time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.WrapError(core.KindAuth, fmt.Sprintf("%s %s", method, endpoint), errors.New(resp.Status))
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shoko error: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func level(withChildren bool) string {
	if withChildren {
		return "2"
	}
	return "0"
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// leveledLogger routes retryablehttp logs to zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
