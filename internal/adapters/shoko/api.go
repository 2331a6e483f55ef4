package shoko

import (
	"strings"

	"github.com/mikey-austin/shoko_nav/internal/ports"
)

type apiImage struct {
	URL string `json:"url"`
}

type apiArt struct {
	Thumb  []apiImage `json:"thumb"`
	Fanart []apiImage `json:"fanart"`
}

func (a apiArt) first() string {
	if len(a.Thumb) > 0 {
		return a.Thumb[0].URL
	}
	if len(a.Fanart) > 0 {
		return a.Fanart[0].URL
	}
	return ""
}

type apiFilter struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Size      int         `json:"size"`
	LocalSize int         `json:"localsize"`
	Viewed    int         `json:"viewed"`
	Art       apiArt      `json:"art"`
	Filters   []apiFilter `json:"filters"`
	Groups    []apiGroup  `json:"groups"`
}

type apiGroup struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Summary   string      `json:"summary"`
	Year      string      `json:"year"`
	Rating    string      `json:"rating"`
	Size      int         `json:"size"`
	LocalSize int         `json:"localsize"`
	Viewed    int         `json:"viewed"`
	Art       apiArt      `json:"art"`
	Series    []apiSeries `json:"series"`
}

type apiSeries struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Summary   string       `json:"summary"`
	Year      string       `json:"year"`
	Rating    string       `json:"rating"`
	Size      int          `json:"size"`
	LocalSize int          `json:"localsize"`
	Viewed    int          `json:"viewed"`
	Art       apiArt       `json:"art"`
	Episodes  []apiEpisode `json:"eps"`
}

type apiEpisode struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"eptype"`
	Number   int       `json:"epnumber"`
	Season   string    `json:"season"`
	Air      string    `json:"air"`
	Rating   string    `json:"rating"`
	Summary  string    `json:"summary"`
	View     int       `json:"view"`
	Offset   int       `json:"offset"`
	Art      apiArt    `json:"art"`
	Files    []apiFile `json:"files"`
	SeriesID int       `json:"series_id"`
}

type apiFile struct {
	ID         int    `json:"id"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	Duration   int    `json:"duration"`
	Resolution string `json:"resolution"`
}

type apiStatus struct {
	StartupState  string `json:"startup_state"`
	ServerStarted bool   `json:"server_started"`
	StartupFailed bool   `json:"startup_failed"`
}

type apiAuthRequest struct {
	User   string `json:"user"`
	Pass   string `json:"pass"`
	Device string `json:"device"`
}

type apiAuthReply struct {
	APIKey string `json:"apikey"`
}

func (f apiFilter) record() ports.FilterRecord {
	rec := ports.FilterRecord{
		ID:    f.ID,
		Name:  f.Name,
		Art:   f.Art.first(),
		Sizes: ports.Sizes{Total: f.Size, Local: f.LocalSize, Watched: f.Viewed},
	}
	for _, child := range f.Filters {
		rec.Filters = append(rec.Filters, child.record())
	}
	for _, child := range f.Groups {
		rec.Groups = append(rec.Groups, child.record())
	}
	return rec
}

func (g apiGroup) record() ports.GroupRecord {
	rec := ports.GroupRecord{
		ID:      g.ID,
		Name:    g.Name,
		Art:     g.Art.first(),
		Summary: g.Summary,
		Year:    atoi(g.Year),
		Rating:  atof(g.Rating),
		Sizes:   ports.Sizes{Total: g.Size, Local: g.LocalSize, Watched: g.Viewed},
	}
	for _, s := range g.Series {
		rec.Series = append(rec.Series, s.record())
	}
	return rec
}

func (s apiSeries) record() ports.SeriesRecord {
	rec := ports.SeriesRecord{
		ID:      s.ID,
		Name:    s.Name,
		Art:     s.Art.first(),
		Summary: s.Summary,
		Year:    atoi(s.Year),
		Rating:  atof(s.Rating),
		Sizes:   ports.Sizes{Total: s.Size, Local: s.LocalSize, Watched: s.Viewed},
	}
	for _, ep := range s.Episodes {
		epRec := ep.record()
		if epRec.SeriesID == 0 {
			epRec.SeriesID = s.ID
		}
		rec.Episodes = append(rec.Episodes, epRec)
	}
	return rec
}

func (e apiEpisode) record() ports.EpisodeRecord {
	rec := ports.EpisodeRecord{
		ID:           e.ID,
		SeriesID:     e.SeriesID,
		Name:         e.Name,
		Type:         e.Type,
		Season:       seasonNumber(e.Season),
		Number:       e.Number,
		AirDate:      e.Air,
		Rating:       atof(e.Rating),
		Summary:      e.Summary,
		Art:          e.Art.first(),
		ViewCount:    e.View,
		ResumeOffset: e.Offset,
	}
	if rec.Type == "" {
		rec.Type = "Episode"
	}
	for _, f := range e.Files {
		fr := f.record()
		fr.EpisodeID = e.ID
		rec.Files = append(rec.Files, fr)
	}
	return rec
}

func (f apiFile) record() ports.FileRecord {
	return ports.FileRecord{
		ID:         f.ID,
		Name:       baseName(f.Filename),
		Path:       f.Filename,
		Size:       f.Size,
		Duration:   f.Duration,
		Resolution: f.Resolution,
	}
}

// seasonNumber reads "2x5" style season markers.
func seasonNumber(s string) int {
	head, _, _ := strings.Cut(s, "x")
	return atoi(head)
}

func baseName(p string) string {
	i := strings.LastIndexAny(p, `/\`)
	return p[i+1:]
}
