package repository

import (
	"path/filepath"

	"github.com/backy/backy/internal/errors"
)

const (
	appOrganization = "backy"
	appName         = "Backy"
	appQualifier    = "com"

	repoDirName   = "repo"
	indexFileName = "index.json"
	lockFileName  = "index.lock"
	blobExtension = ".blob"

	dirMode  = 0700
	fileMode = 0600
)

// Config holds the settings for a repository.
type Config struct {
	// DataDir is the base directory, the repository lives in its "repo"
	// subdirectory. If empty, DefaultDataDir is used.
	DataDir string
}

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{}
}

// root returns the repository directory for cfg.
func (cfg Config) root() (string, error) {
	dir := cfg.DataDir
	if dir == "" {
		var err error
		dir, err = DefaultDataDir()
		if err != nil {
			return "", err
		}
	}

	return filepath.Join(dir, repoDirName), nil
}

func homeDir(lookup func() (string, error)) (string, error) {
	home, err := lookup()
	if err != nil || home == "" {
		return "", errors.E(errors.KindConfig, "resolve data directory", "",
			errors.Errorf("unable to locate home directory: %v", err))
	}
	return home, nil
}
