package navd

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for navd.
type Config struct {
	Server   ServerConfig      `toml:"server"`
	Catalog  CatalogConfig     `toml:"catalog"`
	Kodi     KodiConfig        `toml:"kodi"`
	History  HistoryConfig     `toml:"history"`
	Airing   AiringConfig      `toml:"airing"`
	State    StateConfig       `toml:"state"`
	Settings map[string]string `toml:"settings"`
	Modules  ModulesConfig     `toml:"modules"`
}

// ServerConfig defines shared server settings.
type ServerConfig struct {
	Broker    string     `toml:"broker"`
	Identity  string     `toml:"identity"`
	TopicBase string     `toml:"topic_base"`
	LogLevel  string     `toml:"log_level"`
	LogFormat string     `toml:"log_format"`
	LogOutput string     `toml:"log_output"`
	LogUTC    bool       `toml:"log_utc"`
	TLS       TLSConfig  `toml:"tls"`
	Auth      AuthConfig `toml:"auth"`
}

// TLSConfig holds TLS paths for MQTT.
type TLSConfig struct {
	CA   string `toml:"ca"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

// AuthConfig holds MQTT auth credentials.
type AuthConfig struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// CatalogConfig points at the Shoko server.
type CatalogConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	TimeoutMS int64  `toml:"timeout_ms"`
	RetryMax  int    `toml:"retry_max"`
}

// KodiConfig configures playback through Kodi JSON-RPC.
type KodiConfig struct {
	BaseURL   string `toml:"base_url"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	TimeoutMS int64  `toml:"timeout_ms"`
}

// HistoryConfig configures the search history database.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// AiringConfig configures the airing-today feed.
type AiringConfig struct {
	URL            string `toml:"url"`
	RefreshMinutes int    `toml:"refresh_minutes"`
}

// StateConfig locates persisted settings.
type StateConfig struct {
	SettingsPath string `toml:"settings_path"`
}

// ModulesConfig holds module configurations.
type ModulesConfig struct {
	NavNode      NavNodeConfig      `toml:"nav_node"`
	HTTPAPI      HTTPAPIConfig      `toml:"http_api"`
	EmbeddedMQTT EmbeddedMQTTConfig `toml:"embedded_mqtt"`
}

// NavNodeConfig configures the MQTT navigation node.
type NavNodeConfig struct {
	Enabled        bool   `toml:"enabled"`
	NodeID         string `toml:"node_id"`
	Name           string `toml:"name"`
	RouteTimeoutMS int64  `toml:"route_timeout_ms"`
}

// HTTPAPIConfig configures the JSON HTTP API.
type HTTPAPIConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// EmbeddedMQTTConfig configures the embedded MQTT broker.
type EmbeddedMQTTConfig struct {
	Enabled        bool   `toml:"enabled"`
	Listen         string `toml:"listen"`
	AllowAnonymous bool   `toml:"allow_anonymous"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TLSCA          string `toml:"tls_ca"`
	TLSCert        string `toml:"tls_cert"`
	TLSKey         string `toml:"tls_key"`
}

// LoadConfig loads a config file from path.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}
	return cfg, nil
}

// Validate checks the settings every enabled module depends on.
func (c Config) Validate() error {
	if !c.Modules.NavNode.Enabled && !c.Modules.HTTPAPI.Enabled && !c.Modules.EmbeddedMQTT.Enabled {
		return errors.New("no modules enabled")
	}
	if (c.Modules.NavNode.Enabled || c.Modules.HTTPAPI.Enabled) && c.Catalog.BaseURL == "" {
		return errors.New("catalog base_url required")
	}
	if c.Modules.NavNode.Enabled && c.Modules.NavNode.NodeID == "" {
		return errors.New("nav_node node_id required")
	}
	return nil
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nav", "navd.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "nav", "navd.toml"), nil
}
