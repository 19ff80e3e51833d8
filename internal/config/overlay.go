// config/overlay.go
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files into the process environment. Missing files are fine.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// OverlayEnv applies JOBBOT_* environment overrides on top of cfg.
func OverlayEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("JOBBOT_DATA_DIR")); v != "" {
		cfg.App.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("JOBBOT_HEADLESS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("JOBBOT_DRIVER")); v != "" {
		cfg.Browser.Driver = v
	}
}

// PathFromEnv returns the config path to use when no flag was given.
func PathFromEnv(dataDir string) string {
	if v := strings.TrimSpace(os.Getenv("JOBBOT_CONFIG")); v != "" {
		return v
	}
	return filepath.Join(dataDir, "config.yml")
}
