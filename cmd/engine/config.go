package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config.yml into the data dir if it is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.EnsureUserConfig(resolveDataDir())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config at %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the config and report errors and warnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: driver=%s ledger=%s (%s) keywords=%q locations=%q\n",
			cfg.Browser.Driver, cfg.Resolve(cfg.App.LedgerPath), cfg.Ledger.Backend, cfg.Search.Keywords, cfg.Search.Locations)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
