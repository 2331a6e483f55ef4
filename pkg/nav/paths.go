package nav

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Route path builders. Every path produced here is accepted by the router.

func RootPath() string { return "/" }

func FilterPath(filterID int) string {
	return fmt.Sprintf("/menu/filter/%d", filterID)
}

func UnsortedPath() string { return "/menu/filter/unsorted" }

func GroupPath(groupID, filterID int) string {
	return fmt.Sprintf("/menu/group/%d/filterby/%d", groupID, filterID)
}

func SeriesPath(seriesID int) string {
	return fmt.Sprintf("/menu/series/%d", seriesID)
}

func EpisodeTypePath(seriesID int, episodeType string) string {
	return fmt.Sprintf("/menu/series/%d/type/%s", seriesID, url.PathEscape(episodeType))
}

func SearchPath() string { return "/menu/search" }

// SearchResultPath escapes the whole query into the trailing free-text segment.
func SearchResultPath(query string) string {
	return "/menu/search/" + url.PathEscape(query)
}

func AiringTodayPath() string { return "/menu/airing_today" }

func TVShowsPath(apiKey string) string {
	return "/tvshows/" + url.PathEscape(apiKey)
}

func PlayPath(episodeID, fileID int) string {
	return fmt.Sprintf("/episode/%d/file/%d/play", episodeID, fileID)
}

func PlayWithoutMarkingPath(episodeID, fileID int) string {
	return fmt.Sprintf("/episode/%d/file/%d/play_without_marking", episodeID, fileID)
}

func ResumePath(episodeID, fileID int) string {
	return fmt.Sprintf("/episode/%d/file/%d/resume", episodeID, fileID)
}

// ScriptPath wraps a host action so it can be routed.
func ScriptPath(action string) string {
	return "/script/" + url.PathEscape(action)
}

// Host actions carried by script paths.

func MoveToIndexAction(index int) string {
	return "MoveToIndex(" + strconv.Itoa(index) + ")"
}

func CalendarAction() string { return "RunScript(calendar)" }

func SettingsAction() string { return "Addon.OpenSettings" }

func ServerMenuAction() string { return "RunScript(server_menu)" }

func NewSearchAction(save bool) string {
	if save {
		return "RunScript(search,save)"
	}
	return "RunScript(search,quick)"
}

func RemoveSearchTermAction(query string) string {
	return "RunScript(search_remove," + query + ")"
}

func ClearSearchTermsAction() string { return "RunScript(search_clear)" }

type apiKeyKey struct{}

// WithAPIKey scopes catalog calls made with ctx to an explicit api key.
func WithAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyKey{}, apiKey)
}

// APIKeyFrom returns the api key set with WithAPIKey, if any.
func APIKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyKey{}).(string)
	return key, ok && key != ""
}
