package ports

import (
	"context"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Catalog fetches the browsable hierarchy from the catalog server.
// Adapters return plain records; core turns them into entities.
type Catalog interface {
	FetchFilter(ctx context.Context, id int, withChildren bool) (FilterRecord, error)
	FetchGroup(ctx context.Context, id int, filterID int, withChildren bool) (GroupRecord, error)
	FetchSeries(ctx context.Context, id int, withChildren bool) (SeriesRecord, error)
	FetchEpisodeType(ctx context.Context, seriesID int, episodeType string, withChildren bool) (EpisodeTypeRecord, error)
	FetchEpisode(ctx context.Context, id int) (EpisodeRecord, error)
	FetchUnsortedFiles(ctx context.Context) ([]FileRecord, error)
	Search(ctx context.Context, query string, tagLimit int, limit int) (SearchRecord, error)
	Auth(ctx context.Context) (bool, error)
	ServerStatus(ctx context.Context) (bool, error)
}

// Settings is a flat key/value store for feature toggles and bookkeeping.
type Settings interface {
	Get(key string) string
	Set(key string, value string) error
}

// Renderer displays a finished screen.
type Renderer interface {
	Render(ctx context.Context, screen nav.Screen) error
}

// Host runs host-side actions and post-render hints.
type Host interface {
	RunScript(ctx context.Context, action string) error
	MoveToIndex(ctx context.Context, index int) error
	ApplySort(ctx context.Context, method string) error
	ShowInformation(ctx context.Context, title string, text string) error
	Notify(ctx context.Context, msg nav.Message) error
}

// Player starts playback and owns watched-state reporting.
type Player interface {
	Play(ctx context.Context, req nav.PlayRequest) error
}

// FileChoice is one option of a file disambiguation prompt.
type FileChoice struct {
	ID    int
	Label string
}

// Prompter asks the user to pick one file. ok is false on cancel.
type Prompter interface {
	ChooseFile(ctx context.Context, choices []FileChoice) (id int, ok bool, err error)
}

// SearchHistory persists previous search queries, newest first.
type SearchHistory interface {
	Recent(ctx context.Context, limit int) ([]string, error)
	Add(ctx context.Context, query string) error
	Remove(ctx context.Context, query string) error
	Clear(ctx context.Context) error
}

// AiringEntry is one show airing today.
type AiringEntry struct {
	Title   string
	Episode string
	Link    string
}

// AiringFeed lists shows airing today.
type AiringFeed interface {
	Today(ctx context.Context) ([]AiringEntry, error)
}

// Broker publishes commands to remote navigation nodes.
type Broker interface {
	ReplyTopic() string
	PublishCommand(ctx context.Context, nodeID string, cmd nav.CommandEnvelope) (nav.ReplyEnvelope, error)
	ListPresence(ctx context.Context) ([]nav.Presence, error)
}

// Metrics observes router activity.
type Metrics interface {
	ObserveRoute(route string, ok bool, seconds float64)
	ItemError(kind string)
	PlayDispatched(resume bool)
}

// Clock returns the current unix time in seconds.
type Clock interface {
	NowUnix() int64
}

// IDGen returns unique correlation IDs.
type IDGen interface {
	NewID() string
}
