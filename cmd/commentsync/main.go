package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"commentsync/internal/app"
	"commentsync/internal/config"
	"commentsync/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "commentsync",
		Short:         "Sync maintainer comments from the warehouse and deliver them downstream",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("a run mode is required: historic, incremental or export")
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default $COMMENTSYNC_CONFIG)")

	root.AddCommand(
		runCmd(&configPath, "historic",
			"Full reload: sync everything, regenerate exports, batch-deliver",
			(*app.Application).RunHistoric),
		runCmd(&configPath, "incremental",
			"Sync unseen comments and deliver pending records one by one",
			(*app.Application).RunIncremental),
		runCmd(&configPath, "export",
			"Regenerate the historical JSON exports from the local store",
			(*app.Application).RunExport),
	)
	return root
}

func runCmd(configPath *string, use, short string, run func(*app.Application, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			logger, closer, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			application := app.New(cfg, logger)
			if err := run(application, cmd.Context()); err != nil {
				logger.Error("run failed", "mode", use, "error", err)
				return err
			}
			return nil
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func buildLogger(cfg config.Config) (*slog.Logger, io.Closer, error) {
	if cfg.Logging.File != "" {
		return logging.NewWithFile(cfg.Logging.Level, cfg.Logging.File)
	}
	return logging.New(cfg.Logging.Level), nil, nil
}
