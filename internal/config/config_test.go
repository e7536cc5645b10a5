package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()

	cfg.ApplyOverrides("markup", 100)
	if cfg.Render.Format != "markup" {
		t.Fatalf("format=%q, want %q", cfg.Render.Format, "markup")
	}
	if cfg.Render.Width != 100 {
		t.Fatalf("width=%d, want 100", cfg.Render.Width)
	}

	cfg.ApplyOverrides("", 0)
	if cfg.Render.Format != "markup" {
		t.Fatalf("format changed unexpectedly: %q", cfg.Render.Format)
	}
	if cfg.Render.Width != 100 {
		t.Fatalf("width changed unexpectedly: %d", cfg.Render.Width)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "render:\n  format: text\nserve:\n  port: 9000\n  session_ttl: 5m\n  token: $CHATMARKUP_TEST_TOKEN\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATMARKUP_TEST_TOKEN", "secret")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Render.Format != "text" {
		t.Fatalf("format=%q, want %q", cfg.Render.Format, "text")
	}
	if cfg.Serve.Port != 9000 {
		t.Fatalf("port=%d, want 9000", cfg.Serve.Port)
	}
	if cfg.Serve.SessionTTL != 5*time.Minute {
		t.Fatalf("session_ttl=%s, want 5m", cfg.Serve.SessionTTL)
	}
	if cfg.Serve.Token != "secret" {
		t.Fatalf("token=%q, want expanded env value", cfg.Serve.Token)
	}
	// Unset keys keep their defaults.
	if cfg.Serve.SessionMax != 1000 {
		t.Fatalf("session_max=%d, want default 1000", cfg.Serve.SessionMax)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("serve:\n  port: 9000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATMARKUP_SERVE_PORT", "9100")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Serve.Port != 9100 {
		t.Fatalf("port=%d, want env override 9100", cfg.Serve.Port)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("render:\n  format: pdf\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serve.Port != Default().Serve.Port {
		t.Fatalf("port=%d, want default", cfg.Serve.Port)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Stream.Delay = 20 * time.Millisecond
	cfg.Serve.CORSOrigins = []string{"https://chat.example.com"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Stream.Delay != cfg.Stream.Delay {
		t.Fatalf("delay=%s, want %s", loaded.Stream.Delay, cfg.Stream.Delay)
	}
	if len(loaded.Serve.CORSOrigins) != 1 || loaded.Serve.CORSOrigins[0] != "https://chat.example.com" {
		t.Fatalf("cors_origins=%v", loaded.Serve.CORSOrigins)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if Exists(path) {
		t.Fatalf("Exists(%q)=true before the file was written", path)
	}
	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(path) {
		t.Fatalf("Exists(%q)=false after Save", path)
	}
	if Exists(dir) {
		t.Fatalf("Exists(%q)=true for a directory", dir)
	}
}
