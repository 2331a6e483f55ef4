package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds CLI configuration from config.toml.
type Config struct {
	Broker    string            `toml:"broker"`
	Identity  string            `toml:"identity"`
	TopicBase string            `toml:"topic_base"`
	Aliases   map[string]string `toml:"aliases"`
	Defaults  Defaults          `toml:"defaults"`
	Server    Server            `toml:"server"`
	Kodi      Kodi              `toml:"kodi"`
	History   History           `toml:"history"`
	Settings  map[string]string `toml:"settings"`
}

// Defaults defines default selector values.
type Defaults struct {
	Node string `toml:"node"`
}

// Server is the catalog server connection.
type Server struct {
	URL      string `toml:"url"`
	APIKey   string `toml:"api_key"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Timeout  string `toml:"timeout"`
	RetryMax int    `toml:"retry_max"`
}

// Kodi is the optional JSON-RPC player endpoint.
type Kodi struct {
	URL      string `toml:"url"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// History configures the search history database.
type History struct {
	Path string `toml:"path"`
}

// Load loads config.toml if present. Missing file returns an empty config.
func Load() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile loads a config from path. Missing file returns an empty config.
func LoadFile(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return normalize(Config{}), nil
		}
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return normalize(cfg), nil
}

func normalize(cfg Config) Config {
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{}
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}
	return cfg
}

func configPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nav", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "nav", "config.toml"), nil
}

// StateDir returns the directory for persisted state.
func StateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "nav"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "nav"), nil
}
