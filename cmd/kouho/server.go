package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/kouho/internal/server"
	"github.com/hyperjump/kouho/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API (and the inbox watcher when directories are configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	if err := components.Matcher.Start(ctx); err != nil {
		return err
	}

	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
			components.Matcher, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go w.SyncExisting()
	}

	srv := server.NewServer(components.Matcher, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	return nil
}
