package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/config"
	"jobbot-engine/internal/logger"
)

var (
	configPath string
	dataDir    string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "engine",
	Short:         "Apply to job postings on behalf of a roster of candidates",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <data-dir>/config.yml, or $JOBBOT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding config, roster, ledger and logs (default $JOBBOT_DATA_DIR or .)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// resolveDataDir applies flag > env > ".".
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if v := os.Getenv("JOBBOT_DATA_DIR"); v != "" {
		return v
	}
	return "."
}

// loadConfig reads .env, the YAML file and env overrides, then validates.
// Warnings are logged; errors fail the command.
func loadConfig(log *slog.Logger) (config.Config, error) {
	config.LoadDotEnv()
	dir := resolveDataDir()

	path := configPath
	if path == "" {
		path = config.PathFromEnv(dir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if cfg.App.DataDir == "" || cfg.App.DataDir == "." {
		cfg.App.DataDir = dir
	}
	config.OverlayEnv(&cfg)
	if dataDir != "" {
		cfg.App.DataDir = dataDir
	}

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Warn("config", "warning", w)
	}
	return cfg, v.Err()
}

// setupLogger returns the console logger and, for long-running commands
// with log_to_file set, a file sink under <data_dir>/logs.
func setupLogger(cfg *config.Config, toFile bool) (*slog.Logger, func() error, error) {
	opts := logger.Options{Debug: debug}
	if toFile && cfg != nil && cfg.App.LogToFile {
		opts.LogDir = filepath.Join(cfg.App.DataDir, "logs")
	}
	return logger.Setup(opts)
}

// bootLogger is used while the config itself is being loaded.
func bootLogger() *slog.Logger {
	l, _, err := setupLogger(nil, false)
	if err != nil {
		return logger.Discard()
	}
	return l
}
