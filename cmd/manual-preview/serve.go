// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manual-preview/internal/api"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve manual previews over HTTP",
	Long: `Serve starts an HTTP server exposing:

  GET /healthz                      liveness
  GET /readyz                       catalog reachability
  GET /products?id=...              product lookup (sponsored included)
  GET /products/{id}/manual.jpg     rendered manual preview`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	bindFlag(serveCmd.Flags(), "server.addr", "addr")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(svc, store.Ping, logger)
	cfg := appConfig.Server
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("manuals", appConfig.Manuals.Dir).
			Str("database", string(store.Driver())).
			Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}
	logger.Info().Msg("server stopped")
	return nil
}
