package core

import (
	"strconv"
	"strings"

	"github.com/mikey-austin/shoko_nav/internal/ports"
)

// Config is runtime configuration for remote commands.
type Config struct {
	Broker    string
	Identity  string
	TopicBase string
	Aliases   map[string]string
	Defaults  Defaults
}

// Defaults defines default selector values.
type Defaults struct {
	Node string
}

// Setting keys read by the router.
const (
	SettingVersion          = "version"
	SettingShowUnsort       = "show_unsort"
	SettingShowAiringToday  = "show_airing_today"
	SettingShowCalendar     = "show_calendar"
	SettingShowSettings     = "show_settings"
	SettingShowShoko        = "show_shoko"
	SettingShowSearch       = "show_search"
	SettingOnePunchMen      = "onepunchmen"
	SettingAPIKey           = "apikey"
	SettingShowContinue     = "show_continue"
	SettingReplaceContinue  = "replace_continue"
	SettingLocalOnly        = "local_only"
	SettingSelectUnwatched  = "select_unwatched"
	SettingPickFile         = "pick_file"
	SettingMaxLimit         = "maxlimit"
	SettingMaxLimitTag      = "maxlimit_tag"
	SettingDefaultSortGroup = "default_sort_groups"
	SettingDefaultSortEps   = "default_sort_episodes"
	SettingAiringFeedURL    = "airing_feed_url"
	SettingHistorySize      = "history_size"
)

// DefaultSettings returns the value of every setting when nothing is stored.
func DefaultSettings() map[string]string {
	return map[string]string{
		SettingVersion:          "",
		SettingShowUnsort:       "false",
		SettingShowAiringToday:  "false",
		SettingShowCalendar:     "false",
		SettingShowSettings:     "true",
		SettingShowShoko:        "false",
		SettingShowSearch:       "true",
		SettingOnePunchMen:      "false",
		SettingAPIKey:           "",
		SettingShowContinue:     "true",
		SettingReplaceContinue:  "false",
		SettingLocalOnly:        "true",
		SettingSelectUnwatched:  "false",
		SettingPickFile:         "false",
		SettingMaxLimit:         "100",
		SettingMaxLimitTag:      "20",
		SettingDefaultSortGroup: "",
		SettingDefaultSortEps:   "",
		SettingAiringFeedURL:    "",
		SettingHistorySize:      "20",
	}
}

type settingsView struct {
	s ports.Settings
}

func (v settingsView) raw(key string) string {
	if v.s == nil {
		return DefaultSettings()[key]
	}
	return strings.TrimSpace(v.s.Get(key))
}

func (v settingsView) Bool(key string) bool {
	on, err := strconv.ParseBool(v.raw(key))
	return err == nil && on
}

func (v settingsView) Int(key string, def int) int {
	n, err := strconv.Atoi(v.raw(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (v settingsView) String(key string) string {
	return v.raw(key)
}
