package repository

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns ~/Library/Application Support/com.backy.Backy.
func DefaultDataDir() (string, error) {
	home, err := homeDir(os.UserHomeDir)
	if err != nil {
		return "", err
	}

	bundle := appQualifier + "." + appOrganization + "." + appName
	return filepath.Join(home, "Library", "Application Support", bundle), nil
}
