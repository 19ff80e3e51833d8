package config

import (
	"errors"
	"os"
	"path/filepath"
)

// EnsureUserConfig makes sure dataDir/config.yml exists, writing the
// defaults when it does not. It returns the path.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := SaveAtomic(userPath, Default()); err != nil {
		return "", err
	}
	return userPath, nil
}

// Resolve makes a relative app path absolute under the data dir.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}
