package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names a config file explicitly
	EnvConfigPath = "DEVSERVER_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "devserver.yaml"
	// ConfigDirName is the directory under the XDG config home
	ConfigDirName = "devserver"
)

// searchPaths lists the config locations in priority order. Entries whose
// variable is unset are left out.
func searchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return paths
}

// FindConfigPath returns the first existing file among $DEVSERVER_CONFIG,
// ./devserver.yaml, $XDG_CONFIG_HOME/devserver/config.yaml and
// ~/.config/devserver/config.yaml, or "" when there is none.
func FindConfigPath() string {
	for _, p := range searchPaths() {
		if isFile(p) {
			return p
		}
	}
	return ""
}

// EnsureConfigDir creates the directory that will hold configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
