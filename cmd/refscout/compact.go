package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devraulu/refscout/pkg/storage"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Delete expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		cache := storage.NewReferenceCache(store, storage.CacheOptions{
			TTL:     cfg.Cache.GetTTL(),
			Timeout: cfg.Cache.GetTimeout(),
		})

		n, err := cache.Compact(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
		return nil
	},
}
