package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sluice/internal/cli"
	"github.com/aretw0/sluice/internal/config"
	"github.com/aretw0/sluice/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "sluice",
	Short: "Sluice runs requests through an ordered, suspendable pipeline",
	Long: `Sluice hosts a pipeline of contributors ordered by stage and by
before/after constraints. Runs can suspend, be parked in a store and resume later.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file (default sluice.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.NewLogger(cfg.Log, level, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func buildRuntime(ctx context.Context, cmd *cobra.Command, extra ...domain.LifecycleHooks) (*cli.Runtime, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Build(ctx, cfg, logger, nil, extra...)
}
