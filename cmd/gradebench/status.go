package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gradebench/gradebench/internal/sdk"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := sdk.New(cfg.DaemonURL, cfg.AuthToken)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon unreachable at %s: %w", cfg.DaemonURL, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", status.AppName, status.Version, status.Revision)
			fmt.Fprintf(out, "Status:     %s\n", status.Status)
			fmt.Fprintf(out, "Courses:    %d\n", status.Courses)
			fmt.Fprintf(out, "Started at: %s\n", status.StartedAt)
			return nil
		},
	}
}
