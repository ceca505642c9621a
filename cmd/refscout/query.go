package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	frontier "github.com/devraulu/refscout/pkg"
	"github.com/devraulu/refscout/pkg/pipeline"
	"github.com/devraulu/refscout/pkg/storage"
)

var (
	queryFile  string
	maxResults int
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve ranked reference summaries for a query",
	Long: `Runs the reference pipeline and prints the result as JSON.
With --file, every non-empty line of the file is run as its own query and
one JSON document is printed per line.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if queryFile == "" && len(args) == 0 {
			return errors.New("a query or --file is required")
		}
		return nil
	},
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "file with one query per line")
	queryCmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum references per query (default from config)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	queries := []string{strings.Join(args, " ")}
	if queryFile != "" {
		var err error
		queries, err = frontier.LoadQueries(queryFile)
		if err != nil {
			return err
		}
	}

	n := cfg.Pipeline.MaxResults
	if cmd.Flags().Changed("max-results") {
		n = maxResults
	}

	store, err := storage.Open(cfg.Cache)
	if err != nil {
		slog.Warn("cache unavailable, running without it", slog.String("backend", cfg.Cache.Backend), slog.Any("err", err))
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	p := pipeline.NewFromConfig(cfg, store)
	enc := json.NewEncoder(cmd.OutOrStdout())

	for _, q := range queries {
		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}

		res, err := p.Run(cmd.Context(), q, n)
		if err != nil {
			return fmt.Errorf("query %q: %w", q, err)
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}
