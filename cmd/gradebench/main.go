package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gradebench/gradebench/internal/config"
	"github.com/gradebench/gradebench/internal/utils"
	"github.com/gradebench/gradebench/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
)

var rootCmd = &cobra.Command{
	Use:     "gradebench",
	Short:   "GradeBench CLI",
	Long:    "GradeBench syncs Canvas courses into a local database and manages assignment group boards.",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "GradeBench config file")
}

func main() {
	// TODO handle log rotation
	logFile := config.DefaultLogFilePath

	if err := utils.EnsureParent(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	logger := slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config file via viper and layers GRADEBENCH_*
// environment variables on top. A missing config file is not an error: every
// field has a default or an env fallback.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flag("config").Changed {
		viper.SetConfigFile(cmd.Flag("config").Value.String())
	} else {
		viper.AddConfigPath(filepath.Join(home, ".gradebench"))
		viper.AddConfigPath(filepath.Join(home, ".config/gradebench"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return nil, fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.SetEnvPrefix("GRADEBENCH")
	viper.AutomaticEnv()

	cfg := &config.Config{
		Path:          viper.ConfigFileUsed(),
		DataDir:       viper.GetString("data_dir"),
		CanvasBaseURL: viper.GetString("canvas_base_url"),
		CanvasToken:   viper.GetString("canvas_token"),
		DaemonAddr:    viper.GetString("daemon_addr"),
		DaemonURL:     viper.GetString("daemon_url"),
		AuthToken:     viper.GetString("auth_token"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
