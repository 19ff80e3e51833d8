package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"jobbot-engine/internal/secrets"
)

var secretPassword string

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Candidate passwords in the OS keychain",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <email>",
	Short: "Store a candidate password (from --password or the first line of stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw := secretPassword
		if pw == "" {
			var err error
			if pw, err = readSecret(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if err := secrets.SetCandidatePassword(args[0], pw); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password stored for %s\n", args[0])
		return nil
	},
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Remove a candidate password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := secrets.DeleteCandidatePassword(args[0])
		if errors.Is(err, secrets.ErrNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "no password stored for %s\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password removed for %s\n", args[0])
		return nil
	},
}

func init() {
	secretsSetCmd.Flags().StringVar(&secretPassword, "password", "", "password to store (visible in shell history; prefer stdin)")
	secretsCmd.AddCommand(secretsSetCmd, secretsDeleteCmd)
	rootCmd.AddCommand(secretsCmd)
}
