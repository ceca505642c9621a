package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "refscout",
	Short:         "Find, summarize and rank web references for system design queries",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		logger.InitLogger(cfg)
		return nil
	},
}

// loadConfig falls back to defaults when the config file is absent and no
// path was given explicitly.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	c, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		c = config.Default()
		c.ApplyEnv()
		return c, nil
	}
	return c, err
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the TOML config file")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}
