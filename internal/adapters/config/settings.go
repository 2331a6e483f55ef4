package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/mikey-austin/shoko_nav/internal/core"
	"github.com/mikey-austin/shoko_nav/internal/ports"
)

// Store is a settings store layered over the built-in defaults and the
// [settings] table of config.toml. Set persists to a TOML state file.
type Store struct {
	mu     sync.RWMutex
	path   string
	base   map[string]string
	stored map[string]string
}

var _ ports.Settings = (*Store)(nil)

// OpenStore loads persisted settings from path. An empty path keeps
// changes in memory only.
func OpenStore(path string, overrides map[string]string) (*Store, error) {
	base := core.DefaultSettings()
	for k, v := range overrides {
		base[k] = v
	}
	s := &Store{path: path, base: base, stored: map[string]string{}}
	if path == "" {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s.stored); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if s.stored == nil {
		s.stored = map[string]string{}
	}
	return s, nil
}

// DefaultStorePath returns settings.toml under the state directory.
func DefaultStorePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.stored[key]; ok {
		return v
	}
	return s.base[key]
}

func (s *Store) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.stored[key]
	s.stored[key] = value
	if err := s.persist(); err != nil {
		if had {
			s.stored[key] = prev
		} else {
			delete(s.stored, key)
		}
		return err
	}
	return nil
}

// All returns every known setting with its effective value.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.base)+len(s.stored))
	for k, v := range s.base {
		out[k] = v
	}
	for k, v := range s.stored {
		out[k] = v
	}
	return out
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.toml")
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(tmp).Encode(s.stored); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
