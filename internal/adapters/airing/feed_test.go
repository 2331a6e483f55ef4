package airing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey-austin/shoko_nav/internal/adapters/clock"
)

func schedule(today time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Schedule</title>
<item><title>Cowboy Bebop - Episode 5</title><link>http://x/1</link><pubDate>%s</pubDate></item>
<item><title>Trigun - Episode 2</title><pubDate>%s</pubDate></item>
<item><title>Lain</title></item>
</channel></rss>`, today.Format(time.RFC1123Z), today.AddDate(0, 0, -1).Format(time.RFC1123Z))
}

func TestTodayFiltersByDate(t *testing.T) {
	today := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	body := schedule(today)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	feed := New(Config{URL: srv.URL}, clock.Fixed(today.Unix()), nil)
	feed.SetHTTPClient(srv.Client())

	entries, err := feed.Today(context.Background())
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Title != "Cowboy Bebop" || entries[0].Episode != "Episode 5" || entries[0].Link != "http://x/1" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if entries[1].Title != "Lain" || entries[1].Episode != "" {
		t.Fatalf("undated entries are kept: %+v", entries[1])
	}

	if _, err := feed.Today(context.Background()); err != nil {
		t.Fatalf("today: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected cached feed, got %d fetches", hits)
	}
}

func TestTodayWithoutURL(t *testing.T) {
	feed := New(Config{}, clock.Fixed(0), nil)
	if _, err := feed.Today(context.Background()); err == nil {
		t.Fatalf("expected error without url")
	}
}
