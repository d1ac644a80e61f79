package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "NETCENSUS_CONFIG"
	// ConfigFileName is the config file looked up in the working directory
	ConfigFileName = "netcensus.yaml"
	// ConfigDirName is the directory under the XDG and system config roots
	ConfigDirName = "netcensus"

	userConfigName = "config.yaml"
)

// candidate is one place a config file may live
type candidate struct {
	path     string
	writable bool
}

// candidates lists config locations in lookup order:
//
//	$NETCENSUS_CONFIG
//	./netcensus.yaml
//	$XDG_CONFIG_HOME/netcensus/config.yaml
//	~/.config/netcensus/config.yaml
//	/etc/netcensus/config.yaml
//
// Entries whose environment variable is unset are left out.
func candidates() []candidate {
	var out []candidate
	if p := os.Getenv(EnvConfigPath); p != "" {
		out = append(out, candidate{path: p})
	}
	out = append(out, candidate{path: ConfigFileName})
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, candidate{path: filepath.Join(xdg, ConfigDirName, userConfigName), writable: true})
	}
	if home := os.Getenv("HOME"); home != "" {
		out = append(out, candidate{path: filepath.Join(home, ".config", ConfigDirName, userConfigName), writable: true})
	}
	return append(out, candidate{path: filepath.Join("/etc", ConfigDirName, userConfigName)})
}

// FindConfigPath returns the first existing config file from the lookup
// order, or "" when there is none. A file found in the working directory is
// returned as an absolute path.
func FindConfigPath() string {
	for _, c := range candidates() {
		if !fileExists(c.path) {
			continue
		}
		if c.path == ConfigFileName {
			if abs, err := filepath.Abs(c.path); err == nil {
				return abs
			}
		}
		return c.path
	}
	return ""
}

// DefaultConfigPath returns where a new per-user config file goes: the
// first XDG location available, else the working directory.
func DefaultConfigPath() string {
	for _, c := range candidates() {
		if c.writable {
			return c.path
		}
	}
	return ConfigFileName
}

// EnsureConfigDir creates the parent directory of configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
