package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	documentFileName = "settings.json"
	lockFileName     = "settings.lock"
)

// DefaultDirectory returns the directory used when no directory is
// configured: {UserConfigDir}/jskit.
func DefaultDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "jskit"), nil
}

// DocumentPath returns the settings document path inside dir.
func DocumentPath(dir string) string {
	return filepath.Join(dir, documentFileName)
}

// LockFilePath returns the lock file path inside dir.
func LockFilePath(dir string) string {
	return filepath.Join(dir, lockFileName)
}
