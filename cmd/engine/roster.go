package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/roster"
	"jobbot-engine/internal/secrets"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Candidate roster helpers",
}

var rosterTemplateCmd = &cobra.Command{
	Use:   "template [path]",
	Short: "Write a sample roster CSV (default: the configured roster path)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}
		path := cfg.Resolve(cfg.App.RosterPath)
		if len(args) == 1 {
			path = args[0]
		}
		if err := roster.WriteTemplate(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "roster template written to %s\n", path)
		return nil
	},
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the active candidates and where their password comes from",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(bootLogger())
		if err != nil {
			return err
		}
		cands, err := roster.Load(cfg.Resolve(cfg.App.RosterPath))
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EMAIL\tNAME\tPREFERRED LOCATION\tPASSWORD")
		for _, c := range cands {
			src := "roster"
			if c.Password == "" {
				src = "keychain"
				if _, err := secrets.GetCandidatePassword(c.Email); err != nil {
					src = "missing"
				}
			}
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n", c.Email, c.FirstName, c.LastName, c.PreferredLocation, src)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d active candidates\n", len(cands))
		return nil
	},
}

func init() {
	rosterCmd.AddCommand(rosterTemplateCmd, rosterListCmd)
	rootCmd.AddCommand(rosterCmd)
}
