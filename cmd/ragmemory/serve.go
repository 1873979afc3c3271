package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/ragmemory/internal/http"
	"github.com/fyrsmithlabs/ragmemory/internal/search"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:9090", "listen address")
}

// serveCmd exposes the search API over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP search API",
	Long: `Serve health, Prometheus metrics and the JSON search API.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/v1/status
  GET  /api/v1/collections
  POST /api/v1/search   {"query": "...", "collection": "...", "top_k": 3}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	svc, err := a.searchService()
	if err != nil {
		return err
	}
	srv, err := newHTTPServer(a, svc, nil, serveAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn(ctx, "http shutdown", zap.Error(err))
	}
	return <-errCh
}

func newHTTPServer(a *app, svc *search.Service, updates httpserver.UpdateStatus, addr string) (*httpserver.Server, error) {
	return httpserver.NewServer(svc, updates, a.logger.Named("http").Underlying(), &httpserver.Config{
		Addr:              addr,
		Version:           version,
		DefaultCollection: a.cfg.Search.DefaultCollection,
		DefaultTopK:       a.cfg.Search.DefaultTopK,
		MaxTopK:           a.cfg.Search.MaxTopK,
	})
}
