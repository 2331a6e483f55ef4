package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Aliases == nil || cfg.Settings == nil {
		t.Fatalf("maps must be initialized")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
broker = "mqtt://localhost:1883"
identity = "den"

[defaults]
node = "living"

[server]
url = "http://shoko:8111"
user = "admin"
retry_max = 2

[settings]
show_unsort = "true"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Defaults.Node != "living" || cfg.Server.URL != "http://shoko:8111" || cfg.Server.RetryMax != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Settings["show_unsort"] != "true" {
		t.Fatalf("expected settings table")
	}
}

func TestLoadDirectory(t *testing.T) {
	if _, err := LoadFile(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestStoreLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "settings.toml")
	store, err := OpenStore(path, map[string]string{"maxlimit": "50"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Get("show_search") != "true" {
		t.Fatalf("expected built-in default")
	}
	if store.Get("maxlimit") != "50" {
		t.Fatalf("expected config override")
	}
	if err := store.Set("maxlimit", "10"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("version", "v1.2.0"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened, err := OpenStore(path, map[string]string{"maxlimit": "50"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Get("maxlimit") != "10" || reopened.Get("version") != "v1.2.0" {
		t.Fatalf("persisted values lost: %v", reopened.All())
	}
}

func TestStoreInMemory(t *testing.T) {
	store, err := OpenStore("", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set("pick_file", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if store.Get("pick_file") != "true" {
		t.Fatalf("expected in-memory value")
	}
}
