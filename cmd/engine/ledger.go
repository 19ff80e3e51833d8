package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/ledger"
)

var archiveYes bool

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Applied-job ledger administration",
}

var ledgerArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy the ledger to a timestamped backup and reset it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !archiveYes {
			return errors.New("archiving clears the ledger; pass --yes to confirm")
		}
		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}

		release, err := ledger.AcquireRunLock(cfg.Resolve(cfg.App.LedgerPath))
		if err != nil {
			return err
		}
		defer release()

		st, err := ledger.Open(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		backup, n, err := ledger.Archive(cmd.Context(), st, cfg.Resolve(cfg.App.BackupDir), time.Now())
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "ledger is empty, nothing to archive")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d entries to %s\n", n, backup)
		return nil
	},
}

func init() {
	ledgerArchiveCmd.Flags().BoolVar(&archiveYes, "yes", false, "confirm clearing the ledger")
	ledgerCmd.AddCommand(ledgerArchiveCmd)
	rootCmd.AddCommand(ledgerCmd)
}
