package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/devraulu/refscout/pkg/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the cache schema",
	Long:  "Applies embedded migrations for the sqlite and postgres backends. Other backends need none.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.Cache)
		if err != nil {
			return err
		}
		slog.Info("cache schema up to date", slog.String("backend", cfg.Cache.Backend))
		return store.Close()
	},
}
