package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/logger"
	"github.com/devraulu/refscout/pkg/pipeline"
	"github.com/devraulu/refscout/pkg/storage"
)

func main() {
	path := "config.toml"
	if v := os.Getenv("REFSCOUT_CONFIG"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		cfg.ApplyEnv()
	} else if err != nil {
		log.Fatal(err)
	}

	logger.InitLogger(cfg)

	store, err := storage.Open(cfg.Cache)
	if err != nil {
		slog.Warn("cache unavailable, serving without it", slog.String("backend", cfg.Cache.Backend), slog.Any("err", err))
		store = nil
	} else {
		defer store.Close()
	}

	p := pipeline.NewFromConfig(cfg, store)

	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           newMux(p, cfg.Pipeline.MaxResults),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting web server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	slog.Info("shutdown complete")
}
