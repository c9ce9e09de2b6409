package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Root != "." {
		t.Errorf("Root = %q, want .", cfg.Root)
	}
	if cfg.AdminAddr != DefaultAdminAddr {
		t.Errorf("AdminAddr = %q, want %q", cfg.AdminAddr, DefaultAdminAddr)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Fallback.Mode != FallbackNone {
		t.Errorf("Fallback.Mode = %q, want %q", cfg.Fallback.Mode, FallbackNone)
	}
	if !cfg.Watch.IsEnabled() {
		t.Error("watch should be enabled by default")
	}
	if cfg.Watch.Debounce.Duration() != DefaultDebounce {
		t.Errorf("Watch.Debounce = %s, want %s", cfg.Watch.Debounce.Duration(), DefaultDebounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devserver.yaml")
	content := `
root: site
entry: index.html
addr: 127.0.0.1:8080
admin_addr: "-"
fallback:
  mode: spa
  file: index.html
log_level: debug
journal: requests.db
engine:
  max_concurrency: 8
watch:
  enabled: false
  debounce: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, found, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if found != path {
		t.Errorf("path = %q, want %q", found, path)
	}

	if cfg.Root != filepath.Join(dir, "site") {
		t.Errorf("Root = %q, want it resolved against the config dir", cfg.Root)
	}
	if cfg.Entry != "index.html" || cfg.Addr != "127.0.0.1:8080" {
		t.Errorf("unexpected entry/addr: %q %q", cfg.Entry, cfg.Addr)
	}
	if cfg.AdminEnabled() {
		t.Error("admin listener should be disabled")
	}
	if cfg.Fallback.Mode != FallbackSPA || cfg.Fallback.File != "index.html" {
		t.Errorf("unexpected fallback %+v", cfg.Fallback)
	}
	if cfg.LogLevel != "debug" || cfg.Journal != "requests.db" {
		t.Errorf("unexpected log level/journal: %q %q", cfg.LogLevel, cfg.Journal)
	}
	if cfg.Engine.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d, want 8", cfg.Engine.MaxConcurrency)
	}
	if cfg.Watch.IsEnabled() {
		t.Error("watch should be disabled")
	}
	if cfg.Watch.Debounce.Duration() != 250*time.Millisecond {
		t.Errorf("Debounce = %s, want 250ms", cfg.Watch.Debounce.Duration())
	}
}

func TestLoadFromPathErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("root: [unclosed"), 0644)
		if _, _, err := LoadFromPath(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("watch:\n  debounce: soon\n"), 0644)
		if _, _, err := LoadFromPath(path); err == nil {
			t.Error("expected duration error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errs   int
	}{
		{"defaults", func(*Config) {}, 0},
		{"static with file", func(c *Config) { c.Fallback = FallbackConfig{Mode: FallbackStatic, File: "404.html"} }, 0},
		{"spa without file", func(c *Config) { c.Fallback.Mode = FallbackSPA }, 1},
		{"unknown mode", func(c *Config) { c.Fallback.Mode = "redirect" }, 1},
		{"entry outside root", func(c *Config) { c.Entry = "../elsewhere/index.html" }, 1},
		{"several", func(c *Config) {
			c.Fallback.Mode = FallbackStatic
			c.Engine.MaxConcurrency = -1
			c.Watch.Debounce = Duration(-time.Second)
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if got := len(multierr.Errors(err)); got != tt.errs {
				t.Errorf("Validate() returned %d errors, want %d: %v", got, tt.errs, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Root = "/srv/site"
	cfg.Fallback = FallbackConfig{Mode: FallbackStatic, File: "404.html"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if loaded.Root != "/srv/site" || loaded.Fallback != cfg.Fallback {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Journal = "requests.db"
	summary := cfg.Summary()
	for _, want := range []string{"Root: .", "Addr: default", "Fallback: none", "Journal: requests.db"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() = %q, missing %q", summary, want)
		}
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(tmpDir)

	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv(EnvConfigPath, "")

	// No config should return empty
	if found := FindConfigPath(); found != "" {
		t.Errorf("FindConfigPath() = %q, want empty", found)
	}

	// XDG location under HOME
	xdg := filepath.Join(tmpDir, ".config", ConfigDirName, "config.yaml")
	os.MkdirAll(filepath.Dir(xdg), 0755)
	os.WriteFile(xdg, []byte("root: ."), 0644)
	if found := FindConfigPath(); found != xdg {
		t.Errorf("FindConfigPath() = %q, want %q", found, xdg)
	}

	// Working directory wins over XDG
	os.WriteFile(ConfigFileName, []byte("root: ."), 0644)
	found := FindConfigPath()
	if filepath.Base(found) != ConfigFileName {
		t.Errorf("FindConfigPath() = %q, want the working directory file", found)
	}

	// Explicit env var wins when it exists
	explicit := filepath.Join(tmpDir, "explicit.yaml")
	os.WriteFile(explicit, []byte("root: ."), 0644)
	t.Setenv(EnvConfigPath, explicit)
	if found := FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %q, want %q", found, explicit)
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if found := FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
