package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gradebench/gradebench/internal/daemon"
	"github.com/gradebench/gradebench/internal/version"
)

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	var addr string
	var authToken string

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the GradeBench daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			slog.Info("gradebench", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

			// .env can carry GRADEBENCH_CANVAS_TOKEN etc for local dev
			godotenv.Load()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flag("http-addr").Changed {
				cfg.DaemonAddr = addr
			}
			if cmd.Flag("http-token").Changed {
				cfg.AuthToken = authToken
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			if err := d.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("daemon start", "error", err)
				return err
			}
			return nil
		},
	}

	daemonCmd.Flags().StringVarP(&addr, "http-addr", "a", "localhost:7938", "Address to bind the local http server")
	daemonCmd.Flags().StringVarP(&authToken, "http-token", "t", "", "Access token for the local http server")

	return daemonCmd
}
