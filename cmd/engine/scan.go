package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/run"
)

var (
	scanCandidate string
	scanLimit     int
	scanDriver    string
)

var scanCmd = &cobra.Command{
	Use:   "scan <keyword> [location]",
	Short: "Search once and list the postings with their resolved ids, without applying",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}
		log, closeLog, err := setupLogger(&cfg, false)
		if err != nil {
			return err
		}
		defer closeLog()

		if scanDriver != "" {
			cfg.Browser.Driver = scanDriver
		}
		location := ""
		if len(args) > 1 {
			location = args[1]
		}

		rows, err := run.Scan(ctx, run.ScanOptions{
			Config:    cfg,
			Log:       log,
			Open:      opener(cfg),
			Keyword:   args[0],
			Location:  location,
			Candidate: scanCandidate,
			Limit:     scanLimit,
		})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "POS\tJOB ID\tTIER\tHANDLED\tTITLE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", r.Position, r.Identity, r.Tier, r.Handled, r.Title)
		}
		return tw.Flush()
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanCandidate, "candidate", "", "mark postings this candidate already has in the ledger")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "stop after this many postings (0 = all)")
	scanCmd.Flags().StringVar(&scanDriver, "driver", "static", "browser driver for the preview: static or chrome")
	rootCmd.AddCommand(scanCmd)
}
