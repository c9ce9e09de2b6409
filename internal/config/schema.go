package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int            `yaml:"version"`
	Root      string         `yaml:"root"`       // document root directory
	Entry     string         `yaml:"entry"`      // entry asset, relative to root; "" is the root directory
	Addr      string         `yaml:"addr"`       // "" = server default
	AdminAddr string         `yaml:"admin_addr"` // "-" disables the admin listener
	Fallback  FallbackConfig `yaml:"fallback"`
	LogLevel  string         `yaml:"log_level"`
	Journal   string         `yaml:"journal,omitempty"` // request journal database, "" = off
	Engine    EngineConfig   `yaml:"engine"`
	Watch     WatchConfig    `yaml:"watch"`
}

// FallbackConfig selects what unmatched paths are answered with
type FallbackConfig struct {
	Mode string `yaml:"mode"`           // none, static or spa
	File string `yaml:"file,omitempty"` // content for static and spa, relative to root
}

// EngineConfig tunes the task engine
type EngineConfig struct {
	MaxConcurrency int64 `yaml:"max_concurrency"`
}

// WatchConfig controls change detection
type WatchConfig struct {
	Enabled  *bool    `yaml:"enabled,omitempty"` // nil = on
	Debounce Duration `yaml:"debounce"`
}

// IsEnabled reports whether the watcher should run
func (w WatchConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
