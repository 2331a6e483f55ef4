package nav

// Content tags understood by host renderers.
const (
	ContentTVShows  = "tvshows"
	ContentEpisodes = "episodes"
	ContentVideos   = "videos"
	ContentSeasons  = "seasons"
)

// ActionKind says what selecting a display item does.
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionScript   ActionKind = "script"
	ActionPlay     ActionKind = "play"
)

// Action is the target of a display item. Path can be fed back to the router.
type Action struct {
	Kind ActionKind `json:"kind"`
	Path string     `json:"path"`
}

// MenuAction is a context-menu entry.
type MenuAction struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// DisplayItem is one row of a menu screen.
type DisplayItem struct {
	Title       string         `json:"title"`
	Icon        string         `json:"icon,omitempty"`
	Action      Action         `json:"action"`
	Container   bool           `json:"container"`
	ContextMenu []MenuAction   `json:"contextMenu,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Screen is a finished menu listing in display order.
type Screen struct {
	Content     string        `json:"content,omitempty"`
	Items       []DisplayItem `json:"items"`
	Cacheable   bool          `json:"cacheable"`
	Success     bool          `json:"success"`
	SortMethods []string      `json:"sortMethods,omitempty"`
	DefaultSort string        `json:"defaultSort,omitempty"`
	SelectIndex int           `json:"selectIndex"`
}

// WatchedStatus classifies an episode or file.
type WatchedStatus int

const (
	Unwatched WatchedStatus = iota
	Watched
	PartiallyWatched
)

func (w WatchedStatus) String() string {
	switch w {
	case Watched:
		return "watched"
	case PartiallyWatched:
		return "partially_watched"
	default:
		return "unwatched"
	}
}

// PlayRequest asks for playback of an episode and/or file. Zero ids are unknown.
type PlayRequest struct {
	EpisodeID   int  `json:"episodeId"`
	FileID      int  `json:"fileId"`
	MarkWatched bool `json:"markWatched"`
	Resume      bool `json:"resume"`
}

// Message is a user-visible notice queued during a route invocation.
type Message struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
}

// RouteBody is the payload for nav.route.
type RouteBody struct {
	Path string `json:"path"`
}

// RouteReply is the reply body for nav.route.
type RouteReply struct {
	Screen   Screen       `json:"screen"`
	Played   *PlayRequest `json:"played,omitempty"`
	Restart  bool         `json:"restart,omitempty"`
	Script   string       `json:"script,omitempty"`
	Messages []Message    `json:"messages,omitempty"`
}
