package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/ledger"
)

var (
	reportOut       string
	reportCandidate string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the applied-job ledger as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}
		st, err := ledger.Open(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.Entries(cmd.Context())
		if err != nil {
			return err
		}
		if reportCandidate != "" {
			entries = ledger.ForCandidate(entries, reportCandidate)
		}
		r := ledger.BuildReport(entries, time.Now())

		if reportOut == "" {
			return printJSON(cmd.OutOrStdout(), r)
		}
		f, err := os.Create(reportOut)
		if err != nil {
			return err
		}
		if err := printJSON(f, r); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report written to %s (%d applications)\n", reportOut, r.TotalApplications)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to this file instead of stdout")
	reportCmd.Flags().StringVar(&reportCandidate, "candidate", "", "only include this candidate's rows")
	rootCmd.AddCommand(reportCmd)
}
