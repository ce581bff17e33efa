//go:build !darwin && !windows

package repository

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns $XDG_DATA_HOME/backy, or ~/.local/share/backy if
// XDG_DATA_HOME is unset or not absolute.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return filepath.Join(dir, appOrganization), nil
	}

	home, err := homeDir(os.UserHomeDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".local", "share", appOrganization), nil
}
