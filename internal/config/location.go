package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigPathEnv overrides the default config file location.
const ConfigPathEnv = "JSKIT_CONFIG"

// ResolveConfigPath picks the config file to use: explicit if non-empty,
// then $JSKIT_CONFIG, then ~/.jskit/config.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	return filepath.Join(home, ".jskit", "config"), nil
}
