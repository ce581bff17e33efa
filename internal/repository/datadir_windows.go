package repository

import (
	"os"
	"path/filepath"

	"github.com/backy/backy/internal/errors"
)

// DefaultDataDir returns %APPDATA%\backy\Backy\data.
func DefaultDataDir() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return "", errors.E(errors.KindConfig, "resolve data directory", "",
			errors.New("APPDATA is not set"))
	}

	return filepath.Join(appData, appOrganization, appName, "data"), nil
}
