package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/blogzin/internal/scheduler"
	"github.com/thinkscotty/blogzin/internal/server"
	"github.com/thinkscotty/blogzin/internal/similarity"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and the background generator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting Blogzin", "version", version)

	store, err := openStore(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	pipe, factClient, err := newPipeline(a.cfg, store)
	if err != nil {
		return err
	}

	sim := similarity.New(a.cfg.Similarity.Threshold, a.cfg.Similarity.NGramSize)
	srv := server.New(a.cfg, store, pipe, factClient.Sources(), sim, version)

	sched := scheduler.New(pipe, time.Duration(a.cfg.Generation.IntervalMinutes)*time.Minute, a.cfg.Generation.SourceID)
	go sched.Run(ctx)

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
