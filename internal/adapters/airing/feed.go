package airing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/ports"
)

// Config configures the airing feed.
type Config struct {
	URL             string
	RefreshInterval time.Duration
	Timeout         time.Duration
}

// Feed lists shows airing today from an RSS or Atom schedule feed.
type Feed struct {
	config Config
	http   *http.Client
	clock  ports.Clock
	logger *zap.Logger

	mu        sync.Mutex
	items     []*gofeed.Item
	fetchedAt int64
}

var _ ports.AiringFeed = (*Feed)(nil)

// New builds a feed reader.
func New(cfg Config, clock ports.Clock, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	httpClient := client.StandardClient()
	httpClient.Timeout = cfg.Timeout
	return &Feed{config: cfg, http: httpClient, clock: clock, logger: logger}
}

// SetHTTPClient replaces the HTTP client.
func (f *Feed) SetHTTPClient(c *http.Client) {
	f.http = c
}

// Today returns entries published on the current local day. Entries
// without a date are kept.
func (f *Feed) Today(ctx context.Context) ([]ports.AiringEntry, error) {
	items, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Unix(f.now(), 0)
	year, month, day := now.Date()

	var out []ports.AiringEntry
	for _, item := range items {
		if item == nil {
			continue
		}
		if t := itemTime(item); t != nil {
			y, m, d := t.In(now.Location()).Date()
			if y != year || m != month || d != day {
				continue
			}
		}
		entry := buildEntry(item)
		if entry.Title == "" {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *Feed) load(ctx context.Context) ([]*gofeed.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchedAt != 0 && time.Duration(f.now()-f.fetchedAt)*time.Second < f.config.RefreshInterval {
		return f.items, nil
	}
	items, err := f.fetch(ctx)
	if err != nil {
		if f.items != nil {
			f.logger.Warn("airing feed refresh failed, serving cached", zap.Error(err))
			return f.items, nil
		}
		return nil, err
	}
	f.items = items
	f.fetchedAt = f.now()
	return items, nil
}

func (f *Feed) fetch(ctx context.Context) ([]*gofeed.Item, error) {
	if strings.TrimSpace(f.config.URL) == "" {
		return nil, fmt.Errorf("airing feed url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "shoko_nav/1.0")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("feed fetch failed: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, err
	}
	f.logger.Debug("airing feed fetched", zap.Int("items", len(feed.Items)))
	return feed.Items, nil
}

func (f *Feed) now() int64 {
	if f.clock != nil {
		return f.clock.NowUnix()
	}
	return time.Now().Unix()
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// buildEntry splits "Show - Episode 5" style titles.
func buildEntry(item *gofeed.Item) ports.AiringEntry {
	title := strings.TrimSpace(item.Title)
	entry := ports.AiringEntry{Title: title, Link: strings.TrimSpace(item.Link)}
	if i := strings.LastIndex(title, " - "); i > 0 {
		entry.Title = strings.TrimSpace(title[:i])
		entry.Episode = strings.TrimSpace(title[i+3:])
	}
	return entry
}
