package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gradebench/gradebench/internal/config"
	"github.com/gradebench/gradebench/internal/utils"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var canvasURL string
	var canvasToken string
	var dataDir string
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a GradeBench config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			path := cmd.Flag("config").Value.String()
			if utils.FileExists(path) && !force {
				return fmt.Errorf("config already exists at %s, use --force to overwrite", path)
			}

			cfg := &config.Config{
				Path:          path,
				DataDir:       dataDir,
				CanvasBaseURL: canvasURL,
				CanvasToken:   canvasToken,
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.Path)
			return nil
		},
	}

	initCmd.Flags().StringVar(&canvasURL, "canvas-url", "", "Canvas instance base URL")
	initCmd.Flags().StringVar(&canvasToken, "canvas-token", "", "Canvas API access token")
	initCmd.Flags().StringVarP(&dataDir, "datadir", "d", config.DefaultDataDir, "GradeBench data directory")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return initCmd
}
