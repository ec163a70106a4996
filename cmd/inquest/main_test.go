package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/casefile/inquest/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server:\n  port: 9999\n")

	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadConfig_defaultFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server:\n  port: 7777\n")

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(resolved) != "config.yaml" || filepath.Dir(resolved) == filepath.Dir(defaultConfigPath) {
		t.Errorf("resolved = %q", resolved)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadConfig_missing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestDefaultServerURLMatchesDefaultPort(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	want := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	if defaultServerURL != want {
		t.Errorf("defaultServerURL = %q, default server port yields %q", defaultServerURL, want)
	}
}

func TestWriteStarterConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeStarterConfig(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port == 0 || cfg.Corpus.BatesPrefix != "EFTA" {
		t.Errorf("starter config = %+v", cfg)
	}

	if err := writeStarterConfig(path); err == nil {
		t.Error("existing config must not be overwritten")
	}
}
