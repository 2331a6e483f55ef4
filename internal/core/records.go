package core

import "github.com/mikey-austin/shoko_nav/internal/ports"

func filterFromRecord(r ports.FilterRecord) *Filter {
	f := &Filter{
		ID:        r.ID,
		Name:      r.Name,
		Art:       r.Art,
		SortIndex: r.SortIndex,
		Sizes:     r.Sizes,
	}
	for _, child := range r.Filters {
		f.Filters = append(f.Filters, filterFromRecord(child))
	}
	for _, child := range r.Groups {
		g := groupFromRecord(child)
		g.FilterID = r.ID
		f.Groups = append(f.Groups, g)
	}
	return f
}

func groupFromRecord(r ports.GroupRecord) *Group {
	g := &Group{
		ID:      r.ID,
		Name:    r.Name,
		Art:     r.Art,
		Summary: r.Summary,
		Year:    r.Year,
		Rating:  r.Rating,
		Sizes:   r.Sizes,
	}
	for _, child := range r.Series {
		g.Series = append(g.Series, seriesFromRecord(child))
	}
	return g
}

func seriesFromRecord(r ports.SeriesRecord) *Series {
	s := &Series{
		ID:      r.ID,
		Name:    r.Name,
		Art:     r.Art,
		Summary: r.Summary,
		Year:    r.Year,
		Rating:  r.Rating,
		Sizes:   r.Sizes,
	}
	for _, ep := range r.Episodes {
		s.Episodes = append(s.Episodes, episodeFromRecord(ep))
	}
	return s
}

func episodeTypeFromRecord(r ports.EpisodeTypeRecord) *EpisodeTypeGroup {
	t := &EpisodeTypeGroup{
		SeriesID: r.SeriesID,
		Type:     r.Type,
		Name:     r.Name,
		Sizes:    r.Sizes,
	}
	for _, ep := range r.Episodes {
		t.Episodes = append(t.Episodes, episodeFromRecord(ep))
	}
	return t
}

func episodeFromRecord(r ports.EpisodeRecord) *Episode {
	ep := &Episode{
		ID:           r.ID,
		SeriesID:     r.SeriesID,
		Name:         r.Name,
		Type:         r.Type,
		Season:       r.Season,
		Number:       r.Number,
		AirDate:      r.AirDate,
		Rating:       r.Rating,
		Summary:      r.Summary,
		Art:          r.Art,
		ViewCount:    r.ViewCount,
		ResumeOffset: r.ResumeOffset,
	}
	for _, f := range r.Files {
		file := fileFromRecord(f)
		if file.EpisodeID == 0 {
			file.EpisodeID = r.ID
		}
		ep.Files = append(ep.Files, file)
	}
	return ep
}

func fileFromRecord(r ports.FileRecord) *File {
	return &File{
		ID:         r.ID,
		EpisodeID:  r.EpisodeID,
		Name:       r.Name,
		Path:       r.Path,
		Size:       r.Size,
		Duration:   r.Duration,
		Resolution: r.Resolution,
	}
}

func searchFromRecord(r ports.SearchRecord) *SearchResults {
	out := &SearchResults{Query: r.Query}
	for _, s := range r.Series {
		out.Series = append(out.Series, seriesFromRecord(s))
	}
	return out
}
