package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the file looked up by ResolveConfigPath.
const ConfigFileName = "codeshift.yaml"

// ResolveConfigPath finds the configuration file. The working directory
// wins over $XDG_CONFIG_HOME/codeshift, then ~/.config/codeshift.
func ResolveConfigPath() (string, error) {
	candidates := []string{ConfigFileName}

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "codeshift", ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "codeshift", ConfigFileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/codeshift if set, otherwise ~/.local/share/codeshift.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "codeshift")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "codeshift")
}
