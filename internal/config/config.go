// Package config provides configuration management for the dev server.
//
// Config file locations (priority order):
//  1. $DEVSERVER_CONFIG
//  2. ./devserver.yaml
//  3. $XDG_CONFIG_HOME/devserver/config.yaml
//  4. ~/.config/devserver/config.yaml
//
// Command line flags override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAdminAddr = "127.0.0.1:3001"
	DefaultLogLevel  = "info"
	DefaultDebounce  = 100 * time.Millisecond

	// AdminDisabled as admin_addr turns the admin listener off
	AdminDisabled = "-"
)

// Fallback modes
const (
	FallbackNone   = "none"
	FallbackStatic = "static"
	FallbackSPA    = "spa"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. A relative root is
// taken relative to the directory holding the file.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Root != "" && !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}
	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Root == "" {
		c.Root = "."
	}
	if c.AdminAddr == "" {
		c.AdminAddr = DefaultAdminAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Fallback.Mode == "" {
		c.Fallback.Mode = FallbackNone
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(DefaultDebounce)
	}
}

// Validate reports every inconsistency in the configuration
func (c *Config) Validate() error {
	var err error

	switch c.Fallback.Mode {
	case FallbackNone:
	case FallbackStatic, FallbackSPA:
		if c.Fallback.File == "" {
			err = multierr.Append(err, fmt.Errorf("fallback mode %q needs fallback.file", c.Fallback.Mode))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown fallback mode %q", c.Fallback.Mode))
	}

	if c.Engine.MaxConcurrency < 0 {
		err = multierr.Append(err, errors.New("engine.max_concurrency must not be negative"))
	}
	if c.Watch.Debounce < 0 {
		err = multierr.Append(err, errors.New("watch.debounce must not be negative"))
	}
	if strings.HasPrefix(filepath.ToSlash(filepath.Clean(c.Entry)), "../") {
		err = multierr.Append(err, fmt.Errorf("entry %q lies outside root", c.Entry))
	}

	return err
}

// AdminEnabled reports whether the admin listener should run
func (c *Config) AdminEnabled() bool {
	return c.AdminAddr != AdminDisabled
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	addr := c.Addr
	if addr == "" {
		addr = "default"
	}
	summary := fmt.Sprintf("Root: %s, Entry: %q, Addr: %s\n", c.Root, c.Entry, addr)
	summary += fmt.Sprintf("Fallback: %s", c.Fallback.Mode)
	if c.Fallback.File != "" {
		summary += fmt.Sprintf(" (%s)", c.Fallback.File)
	}
	summary += fmt.Sprintf(", Watch: %v (debounce %s)", c.Watch.IsEnabled(), c.Watch.Debounce.Duration())
	if c.Journal != "" {
		summary += fmt.Sprintf(", Journal: %s", c.Journal)
	}
	return summary
}
