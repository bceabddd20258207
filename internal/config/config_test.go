package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{EnvConfigFile, EnvPort, EnvLogLevel, EnvLogFormat, EnvVideosDir, EnvStorePath, EnvBaseDir, EnvPerPage} {
		t.Setenv(key, "")
	}
	t.Setenv(EnvDataDir, dir)
	return dir
}

func TestNew_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.PerPage() != DefaultPerPage {
		t.Errorf("PerPage() = %d, want %d", cfg.PerPage(), DefaultPerPage)
	}
	if cfg.StorePath() != filepath.Join(dir, StoreFilename) {
		t.Errorf("StorePath() = %q", cfg.StorePath())
	}
	if cfg.JournalPath() != filepath.Join(dir, JournalFilename) {
		t.Errorf("JournalPath() = %q", cfg.JournalPath())
	}
	if cfg.ConfigFile() != "" {
		t.Errorf("ConfigFile() = %q, want empty", cfg.ConfigFile())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	content := `
port = 9000
videos_dir = "/srv/videos"
store_path = "/srv/data/annotation.json"
per_page = 50
log_format = "text"
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvPort, "9100")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want env override 9100", cfg.Port())
	}
	if cfg.VideosDir() != "/srv/videos" {
		t.Errorf("VideosDir() = %q", cfg.VideosDir())
	}
	if cfg.StorePath() != "/srv/data/annotation.json" {
		t.Errorf("StorePath() = %q", cfg.StorePath())
	}
	if cfg.PerPage() != 50 {
		t.Errorf("PerPage() = %d, want 50", cfg.PerPage())
	}
	if cfg.LogFormat() != "text" {
		t.Errorf("LogFormat() = %q, want text", cfg.LogFormat())
	}
	if cfg.ConfigFile() == "" {
		t.Error("ConfigFile() empty after applying file")
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.toml")); err == nil {
		t.Fatal("Load() expected error for missing explicit config")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port not a number", EnvPort, "abc"},
		{"port out of range", EnvPort, "70000"},
		{"per page zero", EnvPerPage, "0"},
		{"per page too large", EnvPerPage, "1000"},
		{"log format", EnvLogFormat, "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.val)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q expected error", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_BadTOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("port = ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected parse error")
	}
}
