package ports

// Sizes summarizes the episodes under a container.
type Sizes struct {
	Total   int
	Local   int
	Watched int
}

// FilterRecord is a saved view. Children are sub-filters or groups.
type FilterRecord struct {
	ID        int
	Name      string
	Art       string
	SortIndex int
	Sizes     Sizes
	Filters   []FilterRecord
	Groups    []GroupRecord
}

// GroupRecord is a group of related series.
type GroupRecord struct {
	ID      int
	Name    string
	Art     string
	Summary string
	Year    int
	Rating  float64
	Sizes   Sizes
	Series  []SeriesRecord
}

// SeriesRecord is a single show with its episodes.
type SeriesRecord struct {
	ID       int
	Name     string
	Art      string
	Summary  string
	Year     int
	Rating   float64
	Sizes    Sizes
	Episodes []EpisodeRecord
}

// EpisodeTypeRecord is the episodes of one type within a series.
type EpisodeTypeRecord struct {
	SeriesID int
	Type     string
	Name     string
	Sizes    Sizes
	Episodes []EpisodeRecord
}

// EpisodeRecord is one episode and the files that provide it.
type EpisodeRecord struct {
	ID           int
	SeriesID     int
	Name         string
	Type         string
	Season       int
	Number       int
	AirDate      string
	Rating       float64
	Summary      string
	Art          string
	ViewCount    int
	ResumeOffset int // seconds
	Files        []FileRecord
}

// FileRecord is a playable file. EpisodeID is 0 for unsorted files.
type FileRecord struct {
	ID         int
	EpisodeID  int
	Name       string
	Path       string
	Size       int64
	Duration   int
	Resolution string
}

// SearchRecord is the result of a catalog search.
type SearchRecord struct {
	Query  string
	Series []SeriesRecord
}
